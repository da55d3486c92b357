package postgres

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/lib/pq"

	"github.com/vietddude/argmine/internal/infra/storage"
	"github.com/vietddude/argmine/internal/reduce"
)

func pqArray(values []string) driver.Valuer {
	return pq.Array(values)
}

// ResultRepo implements storage.ResultRepository using PostgreSQL.
type ResultRepo struct {
	db *DB
}

// NewResultRepo creates a new PostgreSQL result repository.
func NewResultRepo(db *DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// SaveResults writes documents, sentences and refused urls in one transaction.
func (r *ResultRepo) SaveResults(ctx context.Context, runID, topic string, t reduce.Tables) error {
	uow, err := r.db.NewUnitOfWork(ctx, runID, topic)
	if err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback()
	}()

	if err := uow.SaveDocuments(ctx, t.Documents); err != nil {
		return err
	}
	if err := uow.SaveSentences(ctx, t.Sentences); err != nil {
		return err
	}
	if err := uow.SaveMissing(ctx, t.MissingURLs); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// ExistingURLs returns which urls already have a stored document for topic.
func (r *ResultRepo) ExistingURLs(ctx context.Context, topic string, urls []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(urls) == 0 {
		return found, nil
	}

	var stored pq.StringArray
	query := `SELECT COALESCE(array_agg(url), '{}') FROM documents WHERE topic = $1 AND url = ANY($2)`
	if err := r.db.QueryRowContext(ctx, query, topic, pq.Array(urls)).Scan(&stored); err != nil {
		return nil, fmt.Errorf("failed to query existing urls: %w", err)
	}
	for _, u := range stored {
		found[u] = true
	}
	return found, nil
}

// MissingURLs returns refused urls recorded for topic, oldest first.
func (r *ResultRepo) MissingURLs(ctx context.Context, topic string) ([]string, error) {
	var urls []string
	query := `SELECT url FROM missing_urls WHERE topic = $1 ORDER BY created_at, url`
	if err := r.db.SelectContext(ctx, &urls, query, topic); err != nil {
		return nil, fmt.Errorf("failed to list missing urls: %w", err)
	}
	return urls, nil
}

// Stats summarises stored rows per topic.
func (r *ResultRepo) Stats(ctx context.Context) ([]storage.TopicStats, error) {
	query := `
		WITH topics AS (
			SELECT topic FROM documents
			UNION SELECT topic FROM missing_urls
		)
		SELECT
			t.topic,
			(SELECT COUNT(*) FROM documents d WHERE d.topic = t.topic) AS documents,
			(SELECT COUNT(*) FROM sentences s WHERE s.topic = t.topic) AS sentences,
			(SELECT COUNT(*) FROM sentences s WHERE s.topic = t.topic AND s.argument_label = 'argument') AS arguments,
			(SELECT COUNT(*) FROM missing_urls m WHERE m.topic = t.topic) AS missing
		FROM topics t
		ORDER BY t.topic
	`
	var stats []storage.TopicStats
	if err := r.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	return stats, nil
}
