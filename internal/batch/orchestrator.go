package batch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/argmine/internal/classify"
	"github.com/vietddude/argmine/internal/core/domain"
	"github.com/vietddude/argmine/internal/infra/gateway"
	"github.com/vietddude/argmine/internal/metrics"
)

// Config selects and tunes the batch strategy.
type Config struct {
	Strategy    string        `yaml:"strategy"` // serial, pool, chunked
	Workers     int           `yaml:"workers"`
	ChunkSize   int           `yaml:"chunk_size"`
	Concurrency int           `yaml:"concurrency"`
	PauseEvery  int           `yaml:"pause_every"` // serial only, 0 = never
	PauseFor    time.Duration `yaml:"pause_for"`
}

// DefaultConfig returns chunked dispatch of 100 URLs, 10 at a time.
func DefaultConfig() Config {
	return Config{
		Strategy:    StrategyChunked,
		Workers:     8,
		ChunkSize:   100,
		Concurrency: 10,
		PauseFor:    5 * time.Second,
	}
}

// URLClassifier classifies a single URL. *classify.Classifier implements it.
type URLClassifier interface {
	ClassifyURL(
		ctx context.Context,
		topic, url string,
		opts classify.Options,
	) (domain.DocumentMetadata, []domain.ClassifiedSentence, error)
}

// RefusedRegistry remembers URLs the service refused to crawl, per topic.
type RefusedRegistry interface {
	IsRefused(ctx context.Context, topic, url string) (bool, error)
	MarkRefused(ctx context.Context, topic, url string) error
}

// FailureQueue keeps transient failures for a later retry run.
type FailureQueue interface {
	Add(ctx context.Context, fu *domain.FailedURL) error
}

// Orchestrator runs a list of URLs through a classifier with one strategy.
type Orchestrator struct {
	classifier URLClassifier
	cfg        Config
	opts       classify.Options
	registry   RefusedRegistry
	failures   FailureQueue
	log        *slog.Logger
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

func WithClassifyOptions(opts classify.Options) Option {
	return func(o *Orchestrator) { o.opts = opts }
}

func WithRefusedRegistry(r RefusedRegistry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

func WithFailureQueue(q FailureQueue) Option {
	return func(o *Orchestrator) { o.failures = q }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// NewOrchestrator validates cfg and returns an orchestrator.
func NewOrchestrator(classifier URLClassifier, cfg Config, opts ...Option) (*Orchestrator, error) {
	if _, err := NewStrategy(cfg, nil); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		classifier: classifier,
		cfg:        cfg,
		opts:       classify.DefaultOptions(),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With("component", "batch", "strategy", o.strategyName())
	return o, nil
}

func (o *Orchestrator) strategyName() string {
	if o.cfg.Strategy == "" {
		return StrategyChunked
	}
	return o.cfg.Strategy
}

// Run classifies every URL and returns one outcome per URL that completed.
// Individual failures never abort the run. When ctx is cancelled no further
// URL is started and in-flight URLs are dropped.
func (o *Orchestrator) Run(ctx context.Context, topic string, urls []string) []domain.BatchOutcome {
	strategy, err := NewStrategy(o.cfg, func(ctx context.Context, url string) (domain.BatchOutcome, bool) {
		return o.classifyOne(ctx, topic, url)
	})
	if err != nil {
		o.log.Error("Invalid batch strategy", "error", err)
		return nil
	}

	start := time.Now()
	o.log.Info("Starting batch", "topic", topic, "urls", len(urls))

	for _, url := range urls {
		if ctx.Err() != nil {
			break
		}
		strategy.Submit(ctx, url)
	}
	outcomes := strategy.Drain(ctx)

	metrics.BatchDuration.Observe(time.Since(start).Seconds())
	counts := domain.Counts(outcomes)
	o.log.Info("Batch finished",
		"topic", topic,
		"success", counts[domain.OutcomeSuccess],
		"refused", counts[domain.OutcomeRefused],
		"failed", counts[domain.OutcomeFailure],
		"skipped", counts[domain.OutcomeSkipped],
		"dropped", len(urls)-len(outcomes),
		"duration", time.Since(start),
	)

	return outcomes
}

func (o *Orchestrator) classifyOne(ctx context.Context, topic, url string) (domain.BatchOutcome, bool) {
	strategy := o.strategyName()

	if o.registry != nil {
		known, err := o.registry.IsRefused(ctx, topic, url)
		if err != nil {
			o.log.Warn("Refused registry lookup failed", "url", url, "error", err)
		} else if known {
			o.log.Debug("Skipping previously refused url", "url", url)
			return o.record(strategy, domain.Skipped(url, "previously refused")), true
		}
	}

	metrics.InFlight.WithLabelValues(strategy).Inc()
	doc, sentences, err := o.classifier.ClassifyURL(ctx, topic, url, o.opts)
	metrics.InFlight.WithLabelValues(strategy).Dec()

	if err == nil {
		for _, s := range sentences {
			metrics.SentencesTotal.WithLabelValues(topic, string(s.ArgumentLabel)).Inc()
		}
		return o.record(strategy, domain.Success(doc, sentences)), true
	}

	if ctx.Err() != nil {
		o.log.Debug("Dropping cancelled url", "url", url)
		return domain.BatchOutcome{}, false
	}

	switch {
	case errors.Is(err, classify.ErrNoContent):
		o.log.Info("Empty response, skipping", "url", url)
		return o.record(strategy, domain.Skipped(url, "empty response")), true

	case gateway.IsRefused(err):
		o.log.Warn("Refused", "url", url, "error", err)
		if o.registry != nil {
			if merr := o.registry.MarkRefused(ctx, topic, url); merr != nil {
				o.log.Warn("Failed to record refused url", "url", url, "error", merr)
			}
		}
		return o.record(strategy, domain.Refused(url, err)), true

	default:
		o.log.Error("Classification failed", "url", url, "kind", gateway.KindOf(err), "error", err)
		if o.failures != nil && gateway.ClassifyError(err) == gateway.ActionRetry {
			o.enqueueFailure(ctx, topic, url, err)
		}
		return o.record(strategy, domain.Failure(url, err)), true
	}
}

func (o *Orchestrator) enqueueFailure(ctx context.Context, topic, url string, err error) {
	now := time.Now().Unix()
	fu := &domain.FailedURL{
		ID:          uuid.New().String(),
		URL:         url,
		Topic:       topic,
		ErrorKind:   gateway.KindOf(err).String(),
		Error:       err.Error(),
		LastAttempt: now,
		CreatedAt:   now,
	}
	if qerr := o.failures.Add(ctx, fu); qerr != nil {
		o.log.Warn("Failed to queue url for retry", "url", url, "error", qerr)
	}
}

func (o *Orchestrator) record(strategy string, outcome domain.BatchOutcome) domain.BatchOutcome {
	metrics.OutcomesTotal.WithLabelValues(strategy, string(outcome.Kind)).Inc()
	return outcome
}
