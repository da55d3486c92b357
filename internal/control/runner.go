package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/argmine/internal/batch"
	"github.com/vietddude/argmine/internal/classify"
	"github.com/vietddude/argmine/internal/core/config"
	"github.com/vietddude/argmine/internal/core/domain"
	"github.com/vietddude/argmine/internal/infra/export"
	"github.com/vietddude/argmine/internal/infra/gateway"
	redisclient "github.com/vietddude/argmine/internal/infra/redis"
	"github.com/vietddude/argmine/internal/infra/storage"
	"github.com/vietddude/argmine/internal/infra/storage/memory"
	"github.com/vietddude/argmine/internal/infra/storage/postgres"
	"github.com/vietddude/argmine/internal/metrics"
	"github.com/vietddude/argmine/internal/reduce"
)

// Runner owns the session, stores and orchestrator for one process.
type Runner struct {
	cfg           *config.AppConfig
	session       *gateway.Session
	classifier    *classify.Classifier
	results       storage.ResultRepository
	refused       storage.RefusedRegistry
	failed        storage.FailedURLRepository
	db            *postgres.DB
	redisClient   *redisclient.Client
	metricsServer *metrics.Server
	log           *slog.Logger
}

// Request describes one classify run over a window of a URL list.
type Request struct {
	Topic string
	URLs  []string
	// Offset is the row number of URLs[0] in the full list.
	Offset int
	// Total is the length of the full list; it sets file name padding.
	Total         int
	SkipProcessed bool
}

// Summary aggregates the outcomes of a run.
type Summary struct {
	RunID            string
	Batches          int
	Counts           map[domain.OutcomeKind]int
	Documents        int
	Sentences        int
	Missing          int
	AlreadyProcessed int
	Duplicates       int
	Files            []string
	Duration         time.Duration
}

func newSummary() *Summary {
	return &Summary{
		RunID:  uuid.New().String(),
		Counts: make(map[domain.OutcomeKind]int),
	}
}

func (s *Summary) add(outcomes []domain.BatchOutcome, t reduce.Tables) {
	s.Batches++
	for kind, n := range domain.Counts(outcomes) {
		s.Counts[kind] += n
	}
	s.Documents += len(t.Documents)
	s.Sentences += len(t.Sentences)
	s.Missing += len(t.MissingURLs)
}

// NewRunner connects the configured stores and builds the transport.
// Postgres is used when database.url is set, Redis when redis.url is set;
// otherwise everything stays in memory.
func NewRunner(ctx context.Context, cfg *config.AppConfig, creds gateway.CredentialSource) (*Runner, error) {
	log := slog.Default().With("component", "runner")
	r := &Runner{cfg: cfg, log: log}

	// 1. Initialize Storage
	store := memory.NewMemoryStorage()
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		r.db = db
		r.results = postgres.NewResultRepo(db)
		log.Info("Using PostgreSQL storage")
	} else {
		r.results = memory.NewResultRepo(store)
		log.Info("Using Memory storage")
	}

	// 2. Refused registry and failed url queue
	r.refused = memory.NewRefusedRegistry(store)
	r.failed = memory.NewFailedURLRepo(store)
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, using memory registry", "error", err)
		} else {
			r.redisClient = client
			r.refused = redisclient.NewRefusedRegistry(client)
			r.failed = redisclient.NewFailedURLRepo(client)
			log.Info("Using Redis refused registry")
		}
	}

	// 3. Transport and classifier
	r.session = gateway.NewSession(cfg.Gateway, slog.Default())
	r.classifier = classify.NewClassifier(r.session, creds, cfg.Gateway.Timeout).
		WithLogger(slog.Default())
	if cfg.Classify.Endpoint != "" {
		r.classifier.WithEndpoint(cfg.Classify.Endpoint)
	}

	// 4. Metrics server
	if cfg.Metrics.Port > 0 {
		r.metricsServer = metrics.NewServer(cfg.Metrics.Port, r.Health)
	}

	return r, nil
}

// Start starts background helpers: the metrics server and DB pool metrics.
func (r *Runner) Start(ctx context.Context) {
	if r.metricsServer != nil {
		go func() {
			if err := r.metricsServer.Start(); err != nil {
				r.log.Error("Metrics server failed", "error", err)
			}
		}()
	}
	if r.db != nil {
		r.db.StartMetricsCollector(ctx)
	}
}

// Close releases every connection held by the runner.
func (r *Runner) Close(ctx context.Context) error {
	var errs []error
	if r.metricsServer != nil {
		errs = append(errs, r.metricsServer.Stop(ctx))
	}
	if r.redisClient != nil {
		errs = append(errs, r.redisClient.Close())
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
	}
	r.session.Close()
	return errors.Join(errs...)
}

// Results returns the configured result store.
func (r *Runner) Results() storage.ResultRepository { return r.results }

// Refused returns the configured refused registry.
func (r *Runner) Refused() storage.RefusedRegistry { return r.refused }

// Failed returns the configured failed url queue.
func (r *Runner) Failed() storage.FailedURLRepository { return r.failed }

// Health reports transport and store health for the metrics server.
func (r *Runner) Health() map[string]any {
	report := map[string]any{"gateway": r.session.HealthReport()}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if r.db != nil {
		report["database"] = healthString(r.db.Health(ctx))
	}
	if r.redisClient != nil {
		report["redis"] = healthString(r.redisClient.Health(ctx))
	}
	return report
}

func healthString(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

func (r *Runner) orchestrator(queueFailures bool) (*batch.Orchestrator, error) {
	opts := []batch.Option{
		batch.WithClassifyOptions(r.cfg.Classify.Options),
		batch.WithRefusedRegistry(r.refused),
		batch.WithLogger(slog.Default()),
	}
	if queueFailures {
		opts = append(opts, batch.WithFailureQueue(r.failed))
	}
	return batch.NewOrchestrator(r.classifier, r.cfg.Batch, opts...)
}

// Classify runs req.URLs through the orchestrator in batches of
// input.batch_size. Each batch is reduced, written to CSV and persisted
// before the next one starts. On cancellation the batch in flight is still
// written and the context error is returned with the partial summary.
func (r *Runner) Classify(ctx context.Context, req Request) (*Summary, error) {
	orch, err := r.orchestrator(true)
	if err != nil {
		return nil, err
	}
	total := max(req.Total, req.Offset+len(req.URLs))
	writer, err := export.NewWriter(r.cfg.Output, total)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	summary := newSummary()
	spans := batch.Span{Start: req.Offset, End: req.Offset + len(req.URLs)}.Split(r.cfg.Input.BatchSize)
	r.log.Info("Starting run",
		"run_id", summary.RunID,
		"topic", req.Topic,
		"urls", len(req.URLs),
		"batches", len(spans),
	)

	seen := make(map[string]bool, len(req.URLs))
	for _, span := range spans {
		if ctx.Err() != nil {
			break
		}
		urls := dropSeen(seen, req.URLs[span.Start-req.Offset:span.End-req.Offset])
		summary.Duplicates += span.Size() - len(urls)
		if len(urls) == 0 {
			r.log.Info("Batch holds only repeated urls", "rows", span.String())
			continue
		}

		if req.SkipProcessed {
			before := len(urls)
			urls, err = r.dropProcessed(ctx, req.Topic, urls)
			if err != nil {
				return summary, err
			}
			summary.AlreadyProcessed += before - len(urls)
			if len(urls) == 0 {
				r.log.Info("Batch already processed", "rows", span.String())
				continue
			}
		}

		r.log.Info("Processing batch", "rows", span.String(), "urls", len(urls))
		outcomes := orch.Run(ctx, req.Topic, urls)
		tables := reduce.Reduce(outcomes, slog.Default())
		summary.add(outcomes, tables)

		files, err := r.persist(summary.RunID, req.Topic, writer, tables, span)
		summary.Files = append(summary.Files, files...)
		if err != nil {
			return summary, err
		}
	}

	summary.Duration = time.Since(start)
	r.logSummary(req.Topic, summary)
	return summary, ctx.Err()
}

// dropSeen removes urls already dispatched earlier in the run and marks
// the rest as seen. A url yields one document per topic.
func dropSeen(seen map[string]bool, urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func (r *Runner) dropProcessed(ctx context.Context, topic string, urls []string) ([]string, error) {
	existing, err := r.results.ExistingURLs(ctx, topic, urls)
	if err != nil {
		return nil, fmt.Errorf("failed to check processed urls: %w", err)
	}
	if len(existing) == 0 {
		return urls, nil
	}
	remaining := make([]string, 0, len(urls)-len(existing))
	for _, u := range urls {
		if !existing[u] {
			remaining = append(remaining, u)
		}
	}
	return remaining, nil
}

// persist writes the batch tables even when the run context is already
// cancelled, so results of in-flight work are not lost.
func (r *Runner) persist(
	runID, topic string,
	writer *export.Writer,
	tables reduce.Tables,
	span batch.Span,
) ([]string, error) {
	files, err := writer.WriteTables(tables, span.Start, span.End-1)
	if err != nil {
		return files, fmt.Errorf("failed to write batch %s: %w", span, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.results.SaveResults(ctx, runID, topic, tables); err != nil {
		return files, fmt.Errorf("failed to save batch %s: %w", span, err)
	}
	return files, nil
}

// RetryFailed re-classifies every queued url for topic. Urls that now
// succeed, are refused or skipped leave the queue; urls that fail again get
// their retry count bumped.
func (r *Runner) RetryFailed(ctx context.Context, topic string) (*Summary, error) {
	queued, err := r.failed.GetAll(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to load failed urls: %w", err)
	}
	summary := newSummary()
	if len(queued) == 0 {
		r.log.Info("No failed urls queued", "topic", topic)
		return summary, nil
	}

	orch, err := r.orchestrator(false)
	if err != nil {
		return nil, err
	}
	cfg := r.cfg.Output
	cfg.Prefix += "_retry"
	writer, err := export.NewWriter(cfg, len(queued))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ids := make(map[string][]string, len(queued))
	urls := make([]string, 0, len(queued))
	for _, fu := range queued {
		if _, ok := ids[fu.URL]; !ok {
			urls = append(urls, fu.URL)
		}
		ids[fu.URL] = append(ids[fu.URL], fu.ID)
	}

	r.log.Info("Retrying failed urls", "topic", topic, "urls", len(urls))
	outcomes := orch.Run(ctx, topic, urls)
	tables := reduce.Reduce(outcomes, slog.Default())
	summary.add(outcomes, tables)

	for _, o := range outcomes {
		for _, id := range ids[o.URL] {
			if o.Kind == domain.OutcomeFailure && gateway.ClassifyError(o.Err) == gateway.ActionRetry {
				err = r.failed.IncrementRetry(ctx, topic, id)
			} else {
				err = r.failed.MarkResolved(ctx, topic, id)
			}
			if err != nil {
				r.log.Warn("Failed to update failed url", "url", o.URL, "error", err)
			}
		}
	}

	files, err := r.persist(summary.RunID, topic, writer, tables, batch.Span{Start: 0, End: len(urls)})
	summary.Files = files
	if err != nil {
		return summary, err
	}

	summary.Duration = time.Since(start)
	r.logSummary(topic, summary)
	return summary, ctx.Err()
}

func (r *Runner) logSummary(topic string, s *Summary) {
	r.log.Info("Run finished",
		"run_id", s.RunID,
		"topic", topic,
		"batches", s.Batches,
		"success", s.Counts[domain.OutcomeSuccess],
		"refused", s.Counts[domain.OutcomeRefused],
		"failed", s.Counts[domain.OutcomeFailure],
		"skipped", s.Counts[domain.OutcomeSkipped],
		"already_processed", s.AlreadyProcessed,
		"duplicates", s.Duplicates,
		"documents", s.Documents,
		"sentences", s.Sentences,
		"files", len(s.Files),
		"duration", s.Duration,
	)
}

// LoadURLs reads the configured input and applies the row window. It
// returns the selected urls, the row offset of the first one and the
// length of the full list.
func LoadURLs(in config.InputConfig) (urls []string, offset, total int, err error) {
	if in.Path == "" {
		return nil, 0, 0, fmt.Errorf("no input file given")
	}
	all, err := export.ReadURLs(in.Path, in.Column)
	if err != nil {
		return nil, 0, 0, err
	}
	urls, offset, _, err = export.Window(all, in.StartRow, in.EndRow, in.NDocs)
	if err != nil {
		return nil, 0, 0, err
	}
	return urls, offset, len(all), nil
}
