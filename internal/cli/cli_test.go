package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/argmine/internal/batch"
	"github.com/vietddude/argmine/internal/core/config"
	"github.com/vietddude/argmine/internal/core/domain"
	"github.com/vietddude/argmine/internal/infra/storage"
)

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStats(&buf, []storage.TopicStats{
		{Topic: "climate change", Documents: 10, Sentences: 120, Arguments: 30, Missing: 2},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "TOPIC")
	assert.Contains(t, lines[1], "climate change")
	assert.Contains(t, lines[1], "120")
}

func TestApplyClassifyFlags(t *testing.T) {
	cmd := classifyCmd
	require.NoError(t, cmd.Flags().Set("strategy", "pool"))
	require.NoError(t, cmd.Flags().Set("batch-size", "25"))
	require.NoError(t, cmd.Flags().Set("all-sentences", "true"))
	require.NoError(t, cmd.Flags().Set("topic-relevance", "match_string"))

	cfg := config.Default()
	require.NoError(t, applyClassifyFlags(cmd, cfg))
	assert.Equal(t, batch.StrategyPool, cfg.Batch.Strategy)
	assert.Equal(t, 25, cfg.Input.BatchSize)
	assert.False(t, cfg.Classify.OnlyArguments)
	assert.Equal(t, domain.RelevanceMatchString, cfg.Classify.TopicRelevance)

	require.NoError(t, cmd.Flags().Set("strategy", "bogus"))
	assert.Error(t, applyClassifyFlags(cmd, config.Default()))
}
