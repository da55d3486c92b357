package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vietddude/argmine/internal/core/domain"
)

// UnitOfWork bundles the writes of one batch into a single transaction.
type UnitOfWork struct {
	tx    *sqlx.Tx
	runID string
	topic string
}

// NewUnitOfWork creates a new unit of work with an active transaction.
func (db *DB) NewUnitOfWork(ctx context.Context, runID, topic string) (*UnitOfWork, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &UnitOfWork{tx: tx, runID: runID, topic: topic}, nil
}

// Commit commits the transaction.
func (u *UnitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("transaction already completed")
	}
	err := u.tx.Commit()
	u.tx = nil
	return err
}

// Rollback rolls back the transaction. Safe to call multiple times.
func (u *UnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback()
	u.tx = nil
	return err
}

const insertDocumentsQuery = `
	INSERT INTO documents (
		topic, doc_id, url, model_version, language,
		time_argument_prediction, time_attention_computation, time_preprocessing,
		time_stance_prediction, time_logging, time_total,
		total_arguments, total_contra_arguments, total_pro_arguments,
		total_non_arguments, total_classified_sentences, run_id
	) VALUES (
		:store_topic, :doc_id, :url, :model_version, :language,
		:time_argument_prediction, :time_attention_computation, :time_preprocessing,
		:time_stance_prediction, :time_logging, :time_total,
		:total_arguments, :total_contra_arguments, :total_pro_arguments,
		:total_non_arguments, :total_classified_sentences, :run_id
	)
	ON CONFLICT (topic, doc_id) DO UPDATE SET
		model_version = EXCLUDED.model_version,
		language = EXCLUDED.language,
		time_total = EXCLUDED.time_total,
		total_arguments = EXCLUDED.total_arguments,
		total_contra_arguments = EXCLUDED.total_contra_arguments,
		total_pro_arguments = EXCLUDED.total_pro_arguments,
		total_non_arguments = EXCLUDED.total_non_arguments,
		total_classified_sentences = EXCLUDED.total_classified_sentences,
		run_id = EXCLUDED.run_id
`

const insertSentencesQuery = `
	INSERT INTO sentences (
		topic, doc_id, sentence_id, url, argument_confidence, argument_label,
		sentence_original, sentence_preprocessed, sort_confidence,
		stance_confidence, stance_label, run_id
	) VALUES (
		:store_topic, :doc_id, :sentence_id, :url, :argument_confidence, :argument_label,
		:sentence_original, :sentence_preprocessed, :sort_confidence,
		:stance_confidence, :stance_label, :run_id
	)
	ON CONFLICT (topic, doc_id, sentence_id) DO NOTHING
`

type documentRow struct {
	domain.DocumentMetadata
	StoreTopic string `db:"store_topic"`
	RunID      string `db:"run_id"`
}

// Rows per bulk insert. A statement may bind at most 65535 parameters;
// documents bind 17 per row, sentences 12.
const (
	documentChunk = 3000
	sentenceChunk = 1000
)

// chunks partitions rows into consecutive slices of at most size rows.
func chunks[T any](rows []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(rows); start += size {
		out = append(out, rows[start:min(start+size, len(rows))])
	}
	return out
}

// uniqueDocuments keeps the last copy of each doc_id in first-seen order.
// One upsert statement cannot touch the same key twice.
func uniqueDocuments(docs []domain.DocumentMetadata) []domain.DocumentMetadata {
	index := make(map[string]int, len(docs))
	out := make([]domain.DocumentMetadata, 0, len(docs))
	for _, d := range docs {
		if i, ok := index[d.DocID]; ok {
			out[i] = d
			continue
		}
		index[d.DocID] = len(out)
		out = append(out, d)
	}
	return out
}

// SaveDocuments upserts documents keyed by (topic, doc_id).
func (u *UnitOfWork) SaveDocuments(ctx context.Context, docs []domain.DocumentMetadata) error {
	docs = uniqueDocuments(docs)
	if len(docs) == 0 {
		return nil
	}

	rows := make([]documentRow, len(docs))
	for i, d := range docs {
		rows[i] = documentRow{DocumentMetadata: d, StoreTopic: u.topic, RunID: u.runID}
	}

	for _, chunk := range chunks(rows, documentChunk) {
		if _, err := u.tx.NamedExecContext(ctx, insertDocumentsQuery, chunk); err != nil {
			return fmt.Errorf("failed to save documents: %w", err)
		}
	}
	return nil
}

type sentenceRow struct {
	domain.ClassifiedSentence
	StoreTopic string `db:"store_topic"`
	RunID      string `db:"run_id"`
}

// SaveSentences upserts sentences keyed by (topic, doc_id, sentence_id).
func (u *UnitOfWork) SaveSentences(ctx context.Context, sentences []domain.ClassifiedSentence) error {
	if len(sentences) == 0 {
		return nil
	}

	rows := make([]sentenceRow, len(sentences))
	for i, s := range sentences {
		rows[i] = sentenceRow{ClassifiedSentence: s, StoreTopic: u.topic, RunID: u.runID}
	}

	for _, chunk := range chunks(rows, sentenceChunk) {
		if _, err := u.tx.NamedExecContext(ctx, insertSentencesQuery, chunk); err != nil {
			return fmt.Errorf("failed to save sentences: %w", err)
		}
	}
	return nil
}

// SaveMissing records refused urls.
func (u *UnitOfWork) SaveMissing(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	query := `
		INSERT INTO missing_urls (topic, url, run_id)
		SELECT $1, unnest($2::text[]), $3
		ON CONFLICT (topic, url) DO NOTHING
	`
	if _, err := u.tx.ExecContext(ctx, query, u.topic, pqArray(urls), u.runID); err != nil {
		return fmt.Errorf("failed to save missing urls: %w", err)
	}
	return nil
}
