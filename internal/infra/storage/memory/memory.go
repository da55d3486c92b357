package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/argmine/internal/core/domain"
	"github.com/vietddude/argmine/internal/infra/storage"
	"github.com/vietddude/argmine/internal/reduce"
)

// MemoryStorage keeps results, refusals and failed urls in process memory.
type MemoryStorage struct {
	documents map[rowKey]domain.DocumentMetadata
	sentences map[rowKey]domain.ClassifiedSentence
	missing   map[string][]string            // topic -> urls
	refused   map[string]map[string]struct{} // topic -> urls
	failed    map[string]map[string]*domain.FailedURL
	mu        sync.RWMutex
}

// rowKey mirrors the postgres primary keys: (topic, doc_id[, sentence_id]).
type rowKey struct {
	topic      string
	docID      string
	sentenceID string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		documents: make(map[rowKey]domain.DocumentMetadata),
		sentences: make(map[rowKey]domain.ClassifiedSentence),
		missing:   make(map[string][]string),
		refused:   make(map[string]map[string]struct{}),
		failed:    make(map[string]map[string]*domain.FailedURL),
	}
}

// -----------------------------------------------------------------------------
// Result Repository
// -----------------------------------------------------------------------------

type ResultRepo struct {
	store *MemoryStorage
}

func NewResultRepo(store *MemoryStorage) *ResultRepo {
	return &ResultRepo{store: store}
}

func (r *ResultRepo) SaveResults(ctx context.Context, runID, topic string, t reduce.Tables) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, d := range t.Documents {
		r.store.documents[rowKey{topic: topic, docID: d.DocID}] = d
	}
	for _, s := range t.Sentences {
		r.store.sentences[rowKey{topic: topic, docID: s.DocID, sentenceID: s.SentenceID}] = s
	}
	existing := make(map[string]struct{}, len(r.store.missing[topic]))
	for _, u := range r.store.missing[topic] {
		existing[u] = struct{}{}
	}
	for _, u := range t.MissingURLs {
		if _, ok := existing[u]; !ok {
			existing[u] = struct{}{}
			r.store.missing[topic] = append(r.store.missing[topic], u)
		}
	}
	return nil
}

func (r *ResultRepo) ExistingURLs(ctx context.Context, topic string, urls []string) (map[string]bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	found := make(map[string]bool)
	for _, u := range urls {
		if _, ok := r.store.documents[rowKey{topic: topic, docID: domain.HashID(u)}]; ok {
			found[u] = true
		}
	}
	return found, nil
}

func (r *ResultRepo) MissingURLs(ctx context.Context, topic string) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return append([]string(nil), r.store.missing[topic]...), nil
}

func (r *ResultRepo) Stats(ctx context.Context) ([]storage.TopicStats, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	byTopic := make(map[string]*storage.TopicStats)
	get := func(topic string) *storage.TopicStats {
		s, ok := byTopic[topic]
		if !ok {
			s = &storage.TopicStats{Topic: topic}
			byTopic[topic] = s
		}
		return s
	}
	for k := range r.store.documents {
		get(k.topic).Documents++
	}
	for k, s := range r.store.sentences {
		st := get(k.topic)
		st.Sentences++
		if s.IsArgument() {
			st.Arguments++
		}
	}
	for topic, urls := range r.store.missing {
		get(topic).Missing += len(urls)
	}

	stats := make([]storage.TopicStats, 0, len(byTopic))
	for _, s := range byTopic {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Topic < stats[j].Topic })
	return stats, nil
}

// -----------------------------------------------------------------------------
// Refused Registry
// -----------------------------------------------------------------------------

type RefusedRegistry struct {
	store *MemoryStorage
}

func NewRefusedRegistry(store *MemoryStorage) *RefusedRegistry {
	return &RefusedRegistry{store: store}
}

func (r *RefusedRegistry) IsRefused(ctx context.Context, topic, url string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.refused[topic][url]
	return ok, nil
}

func (r *RefusedRegistry) MarkRefused(ctx context.Context, topic, url string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.refused[topic] == nil {
		r.store.refused[topic] = make(map[string]struct{})
	}
	r.store.refused[topic][url] = struct{}{}
	return nil
}

func (r *RefusedRegistry) List(ctx context.Context, topic string) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	urls := make([]string, 0, len(r.store.refused[topic]))
	for u := range r.store.refused[topic] {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls, nil
}

func (r *RefusedRegistry) Clear(ctx context.Context, topic string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.refused, topic)
	return nil
}

// -----------------------------------------------------------------------------
// Failed URL Repository
// -----------------------------------------------------------------------------

type FailedURLRepo struct {
	store *MemoryStorage
}

func NewFailedURLRepo(store *MemoryStorage) *FailedURLRepo {
	return &FailedURLRepo{store: store}
}

func (r *FailedURLRepo) Add(ctx context.Context, fu *domain.FailedURL) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failed[fu.Topic] == nil {
		r.store.failed[fu.Topic] = make(map[string]*domain.FailedURL)
	}
	cp := *fu
	r.store.failed[fu.Topic][fu.ID] = &cp
	return nil
}

func (r *FailedURLRepo) GetAll(ctx context.Context, topic string) ([]*domain.FailedURL, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*domain.FailedURL, 0, len(r.store.failed[topic]))
	for _, fu := range r.store.failed[topic] {
		cp := *fu
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RetryCount != out[j].RetryCount {
			return out[i].RetryCount < out[j].RetryCount
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out, nil
}

func (r *FailedURLRepo) IncrementRetry(ctx context.Context, topic, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if fu, ok := r.store.failed[topic][id]; ok {
		fu.RetryCount++
		fu.LastAttempt = time.Now().Unix()
	}
	return nil
}

func (r *FailedURLRepo) MarkResolved(ctx context.Context, topic, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.failed[topic], id)
	return nil
}

func (r *FailedURLRepo) Count(ctx context.Context, topic string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.failed[topic]), nil
}
