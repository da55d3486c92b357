package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/vietddude/argmine/internal/metrics"
)

// DefaultTimeout is the per-attempt timeout when none is configured.
const DefaultTimeout = 5 * time.Second

// maxErrorSnippet bounds how much of an error body ends up in messages.
const maxErrorSnippet = 256

// Config holds transport configuration.
type Config struct {
	Timeout             time.Duration `yaml:"timeout"`
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
	RequestsPerSecond   float64       `yaml:"requests_per_second"` // 0 = unlimited
	Burst               int           `yaml:"burst"`
	UserAgent           string        `yaml:"user_agent"`
	Retry               RetryConfig   `yaml:"retry"`
}

// DefaultConfig returns the transport defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:             DefaultTimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		UserAgent:           "argmine/1.0",
		Retry:               DefaultRetryConfig,
	}
}

// HealthStatus summarises the outcomes of attempts made by a Session.
type HealthStatus struct {
	Requests      int
	Successes     int
	Failures      int
	ErrorRate     float64
	AvgLatency    time.Duration
	LastSuccessAt time.Time
	LastErrorAt   time.Time
	LastError     string
}

// Session is a pooled, retrying HTTP client for the classification service.
// It is safe for concurrent use. Cookies are never stored.
type Session struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
}

// NewSession creates a session from cfg, filling unset fields with defaults.
func NewSession(cfg Config, logger *slog.Logger) *Session {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = def.MaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = def.IdleConnTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Retry.InitialWait <= 0 {
		cfg.Retry.InitialWait = def.Retry.InitialWait
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        cfg.MaxIdleConns,
				MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
				MaxConnsPerHost:     cfg.MaxConnsPerHost,
				IdleConnTimeout:     cfg.IdleConnTimeout,
			},
		},
		log: logger.With("component", "gateway"),
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return s
}

// WithSession runs fn with a fresh session and releases it afterwards.
func WithSession(cfg Config, logger *slog.Logger, fn func(*Session) error) error {
	s := NewSession(cfg, logger)
	defer s.Close()
	return fn(s)
}

// Send posts payload as JSON to endpoint and returns the raw response body.
// A zero timeout uses the configured one; the timeout applies to each attempt.
// An empty body is returned as nil with no error. Every failure is an *Error.
func (s *Session) Send(
	ctx context.Context,
	endpoint string,
	payload any,
	timeout time.Duration,
) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = s.cfg.Timeout
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewError(KindUnavailable, 0, "marshal request", err)
	}

	label := endpointLabel(endpoint)
	var (
		result  json.RawMessage
		attempt int
	)

	err = retry.Do(ctx, s.cfg.Retry.backoff(), func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.GatewayRetriesTotal.WithLabelValues(label).Inc()
			s.log.Debug("Retrying gateway request", "endpoint", label, "attempt", attempt)
		}
		raw, err := s.attempt(ctx, endpoint, label, body, timeout)
		if err != nil {
			return err
		}
		result = raw
		return nil
	})
	if err != nil {
		var gerr *Error
		if !errors.As(err, &gerr) {
			// retry.Do surfaces a bare context error when cancelled between attempts.
			gerr = NewError(KindNotResponding, 0, "", err)
		}
		metrics.GatewayErrorsTotal.WithLabelValues(label, gerr.Kind.String()).Inc()
		return nil, gerr
	}

	return result, nil
}

func (s *Session) attempt(
	ctx context.Context,
	endpoint, label string,
	body []byte,
	timeout time.Duration,
) (json.RawMessage, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, NewError(KindNotResponding, 0, "rate limiter", err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, NewError(KindUnavailable, 0, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	metrics.GatewayRequestsTotal.WithLabelValues(label).Inc()
	start := time.Now()

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.recordFailure(err)
		gerr := NewError(KindNotResponding, 0, "", err)
		if ctx.Err() != nil {
			return nil, gerr
		}
		return nil, retry.RetryableError(gerr)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	latency := time.Since(start)
	metrics.GatewayLatency.WithLabelValues(label).Observe(latency.Seconds())
	if err != nil {
		s.recordFailure(err)
		gerr := NewError(KindNotResponding, resp.StatusCode, "read response", err)
		if ctx.Err() != nil {
			return nil, gerr
		}
		return nil, retry.RetryableError(gerr)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		s.recordSuccess(latency)
		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			return nil, nil
		}
		return json.RawMessage(data), nil

	case resp.StatusCode == http.StatusBadRequest:
		gerr := badRequestError(data)
		s.recordFailure(gerr)
		return nil, gerr

	case retryableStatus(resp.StatusCode):
		kind := KindUnavailable
		if resp.StatusCode == http.StatusInternalServerError {
			kind = KindInternalGatewayError
		}
		gerr := NewError(kind, resp.StatusCode, snippet(data), nil)
		s.recordFailure(gerr)
		return nil, retry.RetryableError(gerr)

	default:
		gerr := NewError(KindUnavailable, resp.StatusCode, snippet(data), nil)
		s.recordFailure(gerr)
		return nil, gerr
	}
}

// badRequestError interprets a 400 body of the form {"error": "..."}.
func badRequestError(data []byte) *Error {
	var body struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Error == nil {
		return NewError(KindUnavailable, http.StatusBadRequest, "unreadable error body: "+snippet(data), err)
	}
	return NewError(classifyBadRequest(*body.Error), http.StatusBadRequest, *body.Error, nil)
}

func snippet(data []byte) string {
	if len(data) > maxErrorSnippet {
		return string(data[:maxErrorSnippet]) + "..."
	}
	return string(data)
}

// Health returns a snapshot of the session's attempt statistics.
func (s *Session) Health() HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}

// HealthReport renders Health as a flat map for the metrics server.
func (s *Session) HealthReport() map[string]any {
	h := s.Health()
	return map[string]any{
		"gateway_requests":       h.Requests,
		"gateway_failures":       h.Failures,
		"gateway_error_rate":     h.ErrorRate,
		"gateway_avg_latency_ms": h.AvgLatency.Milliseconds(),
	}
}

// Close releases idle connections.
func (s *Session) Close() {
	s.httpClient.CloseIdleConnections()
}

func (s *Session) recordSuccess(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.health.Requests++
	s.health.Successes++
	s.totalLatency += latency
	s.health.AvgLatency = s.totalLatency / time.Duration(s.health.Successes)
	s.health.LastSuccessAt = time.Now()
	s.updateErrorRate()
}

func (s *Session) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.health.Requests++
	s.health.Failures++
	s.health.LastErrorAt = time.Now()
	s.health.LastError = fmt.Sprint(err)
	s.updateErrorRate()
}

func (s *Session) updateErrorRate() {
	if s.health.Requests > 0 {
		s.health.ErrorRate = float64(s.health.Failures) / float64(s.health.Requests)
	}
}
