// Package config loads and validates the YAML pipeline file that
// describes a Host's inputs, filter chain, and outputs.
package config

import "time"

// Config is the root of one pipeline YAML document.
type Config struct {
	Inputs       []InputConfig  `yaml:"inputs"`
	Filters      []FilterConfig `yaml:"filters"`
	Outputs      []OutputConfig `yaml:"outputs"`
	Metrics      MetricsConfig  `yaml:"metrics"`
	Backpressure BackpressureConfig `yaml:"backpressure"`
	WorkerPool   WorkerPoolConfig   `yaml:"worker_pool"`

	// loaded is set once LoadConfig has populated this struct and applied
	// defaults.
	loaded bool
}

// InputConfig describes one source feeding records into the pipeline.
type InputConfig struct {
	Type string `yaml:"type"` // "file"
	Path string `yaml:"path"`
	Tag  string `yaml:"tag"`
}

// FilterConfig describes one entry in the filter chain. Not every field
// applies to every Type; unused fields are ignored by that filter's Init.
type FilterConfig struct {
	Type  string `yaml:"type"` // "grep" | "dedup"
	Match string `yaml:"match"`

	Regex          []string `yaml:"regex"`
	Exclude        []string `yaml:"exclude"`
	LogicalOp      string   `yaml:"logical_op"`
	MetricsRegex   []string `yaml:"metrics_regex"`
	MetricsExclude []string `yaml:"metrics_exclude"`

	TTL          string   `yaml:"ttl"`
	MaxCacheSize int      `yaml:"max_cache_size"`
	Fields       []string `yaml:"fields"`
}

// OutputConfig describes one destination records are sent to.
type OutputConfig struct {
	Type string `yaml:"type"` // "kafka" | "stdout"
	Name string `yaml:"name"`

	Brokers     []string `yaml:"brokers"`
	Topic       string   `yaml:"topic"`
	SASLUser    string   `yaml:"sasl_user"`
	SASLPass    string   `yaml:"sasl_password"`
	Compression string   `yaml:"compression"`

	QueueSize int `yaml:"queue_size"`
}

// MetricsConfig configures the /metrics HTTP listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// BackpressureConfig mirrors pkg/backpressure.Config in YAML form.
type BackpressureConfig struct {
	HighWaterMark int `yaml:"high_water_mark"`
	LowWaterMark  int `yaml:"low_water_mark"`
}

// WorkerPoolConfig mirrors pkg/workerpool.Config in YAML form.
type WorkerPoolConfig struct {
	Workers    int           `yaml:"workers"`
	QueueSize  int           `yaml:"queue_size"`
	JobTimeout time.Duration `yaml:"job_timeout"`
}
