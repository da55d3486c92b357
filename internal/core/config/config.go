package config

import (
	"github.com/vietddude/argmine/internal/batch"
	"github.com/vietddude/argmine/internal/classify"
	"github.com/vietddude/argmine/internal/infra/export"
	"github.com/vietddude/argmine/internal/infra/gateway"
	redisclient "github.com/vietddude/argmine/internal/infra/redis"
	"github.com/vietddude/argmine/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Gateway  gateway.Config     `yaml:"gateway"`
	Classify ClassifyConfig     `yaml:"classify"`
	Batch    batch.Config       `yaml:"batch"`
	Input    InputConfig        `yaml:"input"`
	Output   export.Config      `yaml:"output"`
	Database postgres.Config    `yaml:"database"`
	Redis    redisclient.Config `yaml:"redis"`
	Metrics  MetricsConfig      `yaml:"metrics"`
	Logging  LoggingConfig      `yaml:"logging"`
}

// ClassifyConfig holds request options for the classify endpoint.
type ClassifyConfig struct {
	Endpoint         string `yaml:"endpoint"` // empty = public classify API
	classify.Options `yaml:",inline"`
}

// InputConfig selects the url list and the rows of it to process.
type InputConfig struct {
	Path      string `yaml:"path"`
	Column    string `yaml:"column"` // csv inputs only
	BatchSize int    `yaml:"batch_size"`
	StartRow  int    `yaml:"start_row"`
	EndRow    int    `yaml:"end_row"` // exclusive, 0 = use ndocs or end of list
	NDocs     int    `yaml:"ndocs"`
}

// MetricsConfig holds the metrics server settings.
type MetricsConfig struct {
	Port int `yaml:"port"` // 0 = disabled
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
