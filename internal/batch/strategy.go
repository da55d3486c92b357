package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/argmine/internal/core/domain"
)

const (
	StrategySerial  = "serial"
	StrategyPool    = "pool"
	StrategyChunked = "chunked"
)

// Handler classifies one URL. ok is false when the outcome must be dropped,
// which happens when the run was cancelled while the URL was in flight.
type Handler func(ctx context.Context, url string) (outcome domain.BatchOutcome, ok bool)

// Strategy schedules URL classifications. A strategy is used for one run:
// Submit every URL, then Drain once.
type Strategy interface {
	Name() string
	// Submit schedules url. It may block to apply backpressure.
	Submit(ctx context.Context, url string)
	// Drain waits for scheduled work and returns the collected outcomes.
	Drain(ctx context.Context) []domain.BatchOutcome
}

// NewStrategy builds the strategy named by cfg.Strategy.
func NewStrategy(cfg Config, handler Handler) (Strategy, error) {
	switch cfg.Strategy {
	case StrategySerial:
		return NewSerial(handler, cfg.PauseEvery, cfg.PauseFor), nil
	case StrategyPool:
		return NewPool(handler, cfg.Workers), nil
	case StrategyChunked, "":
		return NewChunked(handler, cfg.ChunkSize, cfg.Concurrency), nil
	}
	return nil, fmt.Errorf("unknown batch strategy %q", cfg.Strategy)
}

// -----------------------------------------------------------------------------
// Serial
// -----------------------------------------------------------------------------

// Serial classifies URLs one at a time in submission order, optionally
// pausing after every pauseEvery URLs.
type Serial struct {
	handler    Handler
	pauseEvery int
	pauseFor   time.Duration

	submitted int
	outcomes  []domain.BatchOutcome
}

func NewSerial(handler Handler, pauseEvery int, pauseFor time.Duration) *Serial {
	return &Serial{handler: handler, pauseEvery: pauseEvery, pauseFor: pauseFor}
}

func (s *Serial) Name() string { return StrategySerial }

func (s *Serial) Submit(ctx context.Context, url string) {
	if ctx.Err() != nil {
		return
	}
	if s.pauseEvery > 0 && s.submitted > 0 && s.submitted%s.pauseEvery == 0 && s.pauseFor > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.pauseFor):
		}
	}
	s.submitted++

	if o, ok := s.handler(ctx, url); ok {
		s.outcomes = append(s.outcomes, o)
	}
}

func (s *Serial) Drain(ctx context.Context) []domain.BatchOutcome {
	return s.outcomes
}

// -----------------------------------------------------------------------------
// Pool
// -----------------------------------------------------------------------------

// Pool runs a fixed number of workers fed from a channel. Submit blocks
// while every worker is busy.
type Pool struct {
	handler Handler
	workers int

	jobs  chan string
	wg    sync.WaitGroup
	start sync.Once

	mu       sync.Mutex
	outcomes []domain.BatchOutcome
}

func NewPool(handler Handler, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{handler: handler, workers: workers, jobs: make(chan string)}
}

func (p *Pool) Name() string { return StrategyPool }

func (p *Pool) Submit(ctx context.Context, url string) {
	p.start.Do(func() { p.spawn(ctx) })
	if ctx.Err() != nil {
		return
	}
	select {
	case p.jobs <- url:
	case <-ctx.Done():
	}
}

func (p *Pool) spawn(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for url := range p.jobs {
				if ctx.Err() != nil {
					continue
				}
				if o, ok := p.handler(ctx, url); ok {
					p.mu.Lock()
					p.outcomes = append(p.outcomes, o)
					p.mu.Unlock()
				}
			}
		}()
	}
}

func (p *Pool) Drain(ctx context.Context) []domain.BatchOutcome {
	p.start.Do(func() {})
	close(p.jobs)
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcomes
}

// -----------------------------------------------------------------------------
// Chunked
// -----------------------------------------------------------------------------

// Chunked buffers URLs into chunks of chunkSize and classifies each chunk
// with at most concurrency requests in flight. A chunk completes before the
// next one starts, so memory stays bounded by the chunk.
type Chunked struct {
	handler     Handler
	chunkSize   int
	concurrency int

	pending  []string
	mu       sync.Mutex
	outcomes []domain.BatchOutcome
}

func NewChunked(handler Handler, chunkSize, concurrency int) *Chunked {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	if concurrency <= 0 {
		concurrency = chunkSize
	}
	return &Chunked{handler: handler, chunkSize: chunkSize, concurrency: concurrency}
}

func (c *Chunked) Name() string { return StrategyChunked }

func (c *Chunked) Submit(ctx context.Context, url string) {
	if ctx.Err() != nil {
		return
	}
	c.pending = append(c.pending, url)
	if len(c.pending) >= c.chunkSize {
		c.flush(ctx)
	}
}

func (c *Chunked) Drain(ctx context.Context) []domain.BatchOutcome {
	if len(c.pending) > 0 && ctx.Err() == nil {
		c.flush(ctx)
	}
	c.pending = nil

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcomes
}

func (c *Chunked) flush(ctx context.Context) {
	chunk := c.pending
	c.pending = nil

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for _, url := range chunk {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if o, ok := c.handler(ctx, url); ok {
				c.mu.Lock()
				c.outcomes = append(c.outcomes, o)
				c.mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
}
