package reduce

import (
	"log/slog"
	"sort"

	"github.com/vietddude/argmine/internal/core/domain"
	"github.com/vietddude/argmine/internal/infra/gateway"
)

// Tables is the flattened result of one or more batches.
type Tables struct {
	Documents   []domain.DocumentMetadata
	Sentences   []domain.ClassifiedSentence
	MissingURLs []string
}

// Reduce folds outcomes into document and sentence rows plus the list of
// URLs the service refused. Other failures are logged and contribute nothing;
// skipped outcomes are ignored.
func Reduce(outcomes []domain.BatchOutcome, logger *slog.Logger) Tables {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "reduce")

	var t Tables
	missing := make(map[string]struct{})
	addMissing := func(url string) {
		if _, ok := missing[url]; ok {
			return
		}
		missing[url] = struct{}{}
		t.MissingURLs = append(t.MissingURLs, url)
	}

	for _, o := range outcomes {
		switch o.Kind {
		case domain.OutcomeSuccess:
			t.Documents = append(t.Documents, o.Document)
			t.Sentences = append(t.Sentences, o.Sentences...)

		case domain.OutcomeRefused:
			addMissing(o.URL)

		case domain.OutcomeFailure:
			if gateway.ClassifyError(o.Err) == gateway.ActionRecordRefused {
				addMissing(o.URL)
				continue
			}
			log.Warn("Dropping failed url", "url", o.URL, "error", o.Err)

		case domain.OutcomeSkipped:
		}
	}

	return t
}

// Merge appends other's rows to t, keeping missing URLs unique.
func (t *Tables) Merge(other Tables) {
	t.Documents = append(t.Documents, other.Documents...)
	t.Sentences = append(t.Sentences, other.Sentences...)

	seen := make(map[string]struct{}, len(t.MissingURLs))
	for _, u := range t.MissingURLs {
		seen[u] = struct{}{}
	}
	for _, u := range other.MissingURLs {
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			t.MissingURLs = append(t.MissingURLs, u)
		}
	}
}

// SortByURL orders documents and sentences by URL for deterministic output.
// Sentences of one document keep their relative order.
func (t *Tables) SortByURL() {
	sort.SliceStable(t.Documents, func(i, j int) bool {
		return t.Documents[i].URL < t.Documents[j].URL
	})
	sort.SliceStable(t.Sentences, func(i, j int) bool {
		return t.Sentences[i].URL < t.Sentences[j].URL
	})
}

// Empty reports whether the tables hold no rows at all.
func (t Tables) Empty() bool {
	return len(t.Documents) == 0 && len(t.Sentences) == 0 && len(t.MissingURLs) == 0
}
