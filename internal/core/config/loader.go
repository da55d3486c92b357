package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/argmine/internal/batch"
	"github.com/vietddude/argmine/internal/classify"
	"github.com/vietddude/argmine/internal/core/domain"
	"github.com/vietddude/argmine/internal/infra/export"
	"github.com/vietddude/argmine/internal/infra/gateway"
)

const DefaultBatchSize = 1000

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	cfg := seed()
	applyDefaults(cfg)
	return cfg
}

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := *seed()

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// seed holds defaults whose zero value is meaningful (only_arguments: false,
// max_retries: 0), so they are set before decoding instead of after.
func seed() *AppConfig {
	return &AppConfig{
		Gateway: gateway.Config{
			Retry: gateway.RetryConfig{
				MaxRetries: gateway.DefaultRetryConfig.MaxRetries,
				MaxWait:    gateway.DefaultRetryConfig.MaxWait,
			},
		},
		Classify: ClassifyConfig{Options: classify.DefaultOptions()},
	}
}

func applyDefaults(cfg *AppConfig) {
	gw := gateway.DefaultConfig()
	if cfg.Gateway.Timeout <= 0 {
		cfg.Gateway.Timeout = gw.Timeout
	}
	if cfg.Gateway.MaxIdleConns == 0 {
		cfg.Gateway.MaxIdleConns = gw.MaxIdleConns
	}
	if cfg.Gateway.MaxIdleConnsPerHost == 0 {
		cfg.Gateway.MaxIdleConnsPerHost = gw.MaxIdleConnsPerHost
	}
	if cfg.Gateway.IdleConnTimeout == 0 {
		cfg.Gateway.IdleConnTimeout = gw.IdleConnTimeout
	}
	if cfg.Gateway.UserAgent == "" {
		cfg.Gateway.UserAgent = gw.UserAgent
	}
	if cfg.Gateway.Retry.InitialWait <= 0 {
		cfg.Gateway.Retry.InitialWait = gw.Retry.InitialWait
	}

	if cfg.Classify.Model == "" {
		cfg.Classify.Model = classify.DefaultModel
	}
	if cfg.Classify.TopicRelevance == "" {
		cfg.Classify.TopicRelevance = domain.DefaultTopicRelevance
	}

	b := batch.DefaultConfig()
	if cfg.Batch.Strategy == "" {
		cfg.Batch.Strategy = b.Strategy
	}
	if cfg.Batch.Workers == 0 {
		cfg.Batch.Workers = b.Workers
	}
	if cfg.Batch.ChunkSize == 0 {
		cfg.Batch.ChunkSize = b.ChunkSize
	}
	if cfg.Batch.Concurrency == 0 {
		cfg.Batch.Concurrency = b.Concurrency
	}
	if cfg.Batch.PauseFor == 0 {
		cfg.Batch.PauseFor = b.PauseFor
	}

	if cfg.Input.Column == "" {
		cfg.Input.Column = export.DefaultURLColumn
	}
	if cfg.Input.BatchSize == 0 {
		cfg.Input.BatchSize = DefaultBatchSize
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "."
	}
	if cfg.Output.Prefix == "" {
		cfg.Output.Prefix = "argmine"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate rejects values no component can run with.
func (c *AppConfig) Validate() error {
	if _, err := batch.NewStrategy(c.Batch, nil); err != nil {
		return fmt.Errorf("invalid batch config: %w", err)
	}
	if _, err := domain.ParseTopicRelevance(string(c.Classify.TopicRelevance)); err != nil {
		return fmt.Errorf("invalid classify config: %w", err)
	}

	positive := []struct {
		name  string
		value int
	}{
		{"batch.workers", c.Batch.Workers},
		{"batch.chunk_size", c.Batch.ChunkSize},
		{"batch.concurrency", c.Batch.Concurrency},
		{"input.batch_size", c.Input.BatchSize},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be > 0, got %d", p.name, p.value)
		}
	}

	nonNegative := []struct {
		name  string
		value int
	}{
		{"batch.pause_every", c.Batch.PauseEvery},
		{"input.start_row", c.Input.StartRow},
		{"input.end_row", c.Input.EndRow},
		{"input.ndocs", c.Input.NDocs},
		{"metrics.port", c.Metrics.Port},
	}
	for _, n := range nonNegative {
		if n.value < 0 {
			return fmt.Errorf("%s must be >= 0, got %d", n.name, n.value)
		}
	}

	if c.Gateway.RequestsPerSecond < 0 {
		return fmt.Errorf("gateway.requests_per_second must be >= 0")
	}
	return nil
}
