package storage

import (
	"context"
	"errors"

	"github.com/vietddude/argmine/internal/core/domain"
	"github.com/vietddude/argmine/internal/reduce"
)

var (
	// ErrNotConfigured is returned when an operation needs a backend that was not set up
	ErrNotConfigured = errors.New("storage backend not configured")
)

// TopicStats summarises stored rows for one topic.
type TopicStats struct {
	Topic     string `db:"topic"`
	Documents int    `db:"documents"`
	Sentences int    `db:"sentences"`
	Arguments int    `db:"arguments"`
	Missing   int    `db:"missing"`
}

// ResultRepository persists reduced batch results
type ResultRepository interface {
	// SaveResults stores one batch's tables atomically, tagged with runID
	SaveResults(ctx context.Context, runID, topic string, tables reduce.Tables) error

	// ExistingURLs returns which of urls already have a document stored for topic
	ExistingURLs(ctx context.Context, topic string, urls []string) (map[string]bool, error)

	// MissingURLs returns the refused urls recorded for topic
	MissingURLs(ctx context.Context, topic string) ([]string, error)

	// Stats summarises stored rows per topic
	Stats(ctx context.Context) ([]TopicStats, error)
}

// RefusedRegistry remembers urls the service refused to crawl, per topic
type RefusedRegistry interface {
	IsRefused(ctx context.Context, topic, url string) (bool, error)
	MarkRefused(ctx context.Context, topic, url string) error

	// List returns every refused url for topic
	List(ctx context.Context, topic string) ([]string, error)

	// Clear forgets every refused url for topic
	Clear(ctx context.Context, topic string) error
}

// FailedURLRepository queues urls that failed transiently
type FailedURLRepository interface {
	// Add queues a failed url
	Add(ctx context.Context, fu *domain.FailedURL) error

	// GetAll returns queued urls for topic, fewest retries first
	GetAll(ctx context.Context, topic string) ([]*domain.FailedURL, error)

	// IncrementRetry bumps the retry count of a queued url
	IncrementRetry(ctx context.Context, topic, id string) error

	// MarkResolved removes a url that has since succeeded
	MarkResolved(ctx context.Context, topic, id string) error

	// Count returns the number of queued urls for topic
	Count(ctx context.Context, topic string) (int, error)
}
