package reduce

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vietddude/argmine/internal/core/domain"
	"github.com/vietddude/argmine/internal/infra/gateway"
)

func success(url string, n int) domain.BatchOutcome {
	doc := domain.DocumentMetadata{DocID: domain.HashID(url), URL: url}
	sentences := make([]domain.ClassifiedSentence, n)
	for i := range sentences {
		text := fmt.Sprintf("%s sentence %d", url, i)
		sentences[i] = domain.ClassifiedSentence{
			DocID:                doc.DocID,
			URL:                  url,
			SentenceID:           domain.HashID(text),
			SentencePreprocessed: text,
		}
	}
	return domain.Success(doc, sentences)
}

func TestReduce(t *testing.T) {
	refused := gateway.NewError(gateway.KindRefused, 400, gateway.RefusedMarker, nil)
	outcomes := []domain.BatchOutcome{
		success("https://b.example", 2),
		domain.Refused("https://refused.example", refused),
		success("https://a.example", 3),
		domain.Failure("https://down.example", gateway.NewError(gateway.KindNotResponding, 0, "", context.DeadlineExceeded)),
		domain.Failure("https://refused2.example", fmt.Errorf("classify: %w", refused)),
		domain.Refused("https://refused.example", refused),
		domain.Skipped("https://empty.example", "empty response"),
		success("https://c.example", 0),
	}

	tables := Reduce(outcomes, nil)

	assert.Len(t, tables.Documents, 3)
	assert.Len(t, tables.Sentences, 5)
	assert.Equal(t, []string{"https://refused.example", "https://refused2.example"}, tables.MissingURLs)

	for _, s := range tables.Sentences {
		assert.Equal(t, domain.HashID(s.URL), s.DocID)
	}
}

func TestReduce_Empty(t *testing.T) {
	tables := Reduce(nil, nil)
	assert.True(t, tables.Empty())

	tables = Reduce([]domain.BatchOutcome{
		domain.Failure("https://x.example", gateway.NewError(gateway.KindUnavailable, 404, "", nil)),
	}, nil)
	assert.True(t, tables.Empty())
}

func TestTables_MergeAndSort(t *testing.T) {
	a := Reduce([]domain.BatchOutcome{
		success("https://z.example", 1),
		domain.Refused("https://r.example", nil),
	}, nil)
	b := Reduce([]domain.BatchOutcome{
		success("https://m.example", 2),
		domain.Refused("https://r.example", nil),
		domain.Refused("https://s.example", nil),
	}, nil)

	a.Merge(b)
	assert.Len(t, a.Documents, 2)
	assert.Len(t, a.Sentences, 3)
	assert.Equal(t, []string{"https://r.example", "https://s.example"}, a.MissingURLs)

	a.SortByURL()
	assert.Equal(t, "https://m.example", a.Documents[0].URL)
	assert.Equal(t, "https://m.example", a.Sentences[0].URL)
	assert.Equal(t, "https://m.example sentence 0", a.Sentences[0].SentencePreprocessed)
	assert.Equal(t, "https://m.example sentence 1", a.Sentences[1].SentencePreprocessed)
}
