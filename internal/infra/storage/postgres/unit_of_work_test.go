package postgres

import (
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/argmine/internal/core/domain"
)

const maxBindParams = 65535

func TestChunks(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5, 6, 7}

	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, chunks(rows, 3))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5, 6, 7}}, chunks(rows, 7))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5, 6, 7}}, chunks(rows, 100))
	assert.Len(t, chunks(rows[:6], 3), 2)
	assert.Nil(t, chunks([]int{}, 3))
}

func TestBulkInsertStaysUnderBindLimit(t *testing.T) {
	docs := make([]documentRow, documentChunk)
	for i := range docs {
		docs[i].DocID = fmt.Sprintf("doc-%d", i)
	}
	_, args, err := sqlx.Named(insertDocumentsQuery, docs)
	require.NoError(t, err)
	assert.Len(t, args, documentChunk*17)
	assert.Less(t, len(args), maxBindParams)

	sentences := make([]sentenceRow, sentenceChunk)
	_, args, err = sqlx.Named(insertSentencesQuery, sentences)
	require.NoError(t, err)
	assert.Len(t, args, sentenceChunk*12)
	assert.Less(t, len(args), maxBindParams)

	// a large run splits into several statements
	big := make([]documentRow, 2*documentChunk+1)
	parts := chunks(big, documentChunk)
	require.Len(t, parts, 3)
	assert.Len(t, parts[2], 1)
}

func TestUniqueDocuments(t *testing.T) {
	docs := []domain.DocumentMetadata{
		{DocID: "a", URL: "https://a.example", TotalArguments: 1},
		{DocID: "b", URL: "https://b.example"},
		{DocID: "a", URL: "https://a.example", TotalArguments: 3},
	}

	got := uniqueDocuments(docs)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].DocID)
	assert.Equal(t, 3, got[0].TotalArguments)
	assert.Equal(t, "b", got[1].DocID)

	assert.Empty(t, uniqueDocuments(nil))
}
