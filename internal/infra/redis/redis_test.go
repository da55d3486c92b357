package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/argmine/internal/core/domain"
	"github.com/vietddude/argmine/internal/infra/storage"
)

var (
	_ storage.RefusedRegistry     = (*RefusedRegistry)(nil)
	_ storage.FailedURLRepository = (*FailedURLRepo)(nil)
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "refused_urls:climate", refusedKey("climate"))
	assert.Equal(t, "failed_urls:climate", failedQueueKey("climate"))
	assert.Equal(t, "failed_url:climate:abc", failedURLKey("climate", "abc"))
}

func TestNewClientInvalidURL(t *testing.T) {
	_, err := NewClient(Config{URL: "not-a-url"})
	require.Error(t, err)
}

// testClient connects to ARGMINE_TEST_REDIS_URL or skips.
func testClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("ARGMINE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("ARGMINE_TEST_REDIS_URL not set")
	}
	client, err := NewClient(Config{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRefusedRegistry(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	reg := NewRefusedRegistry(client)
	topic := "test-" + uuid.NewString()
	t.Cleanup(func() { _ = reg.Clear(ctx, topic) })

	ok, err := reg.IsRefused(ctx, topic, "https://b.example")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, reg.MarkRefused(ctx, topic, "https://b.example"))
	require.NoError(t, reg.MarkRefused(ctx, topic, "https://a.example"))
	require.NoError(t, reg.MarkRefused(ctx, topic, "https://a.example"))

	ok, err = reg.IsRefused(ctx, topic, "https://b.example")
	require.NoError(t, err)
	assert.True(t, ok)

	urls, err := reg.List(ctx, topic)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, urls)

	require.NoError(t, reg.Clear(ctx, topic))
	urls, err = reg.List(ctx, topic)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestFailedURLRepo(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	repo := NewFailedURLRepo(client)
	topic := "test-" + uuid.NewString()

	first := &domain.FailedURL{ID: uuid.NewString(), URL: "https://a.example", Topic: topic, ErrorKind: "not_responding"}
	second := &domain.FailedURL{ID: uuid.NewString(), URL: "https://b.example", Topic: topic, ErrorKind: "internal_gateway_error"}
	require.NoError(t, repo.Add(ctx, first))
	require.NoError(t, repo.Add(ctx, second))
	t.Cleanup(func() {
		_ = repo.MarkResolved(ctx, topic, first.ID)
		_ = repo.MarkResolved(ctx, topic, second.ID)
	})

	require.NoError(t, repo.IncrementRetry(ctx, topic, first.ID))

	all, err := repo.GetAll(ctx, topic)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, 1, all[1].RetryCount)
	assert.NotZero(t, all[1].LastAttempt)

	require.NoError(t, repo.MarkResolved(ctx, topic, second.ID))
	n, err := repo.Count(ctx, topic)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
