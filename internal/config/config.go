package config

import (
	"os"

	"ssw-logs-capture/pkg/pipeerr"

	"gopkg.in/yaml.v2"
)

// LoadConfig reads and parses the pipeline YAML file at path, applies
// defaults, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.KindConfiguration, pipeerr.CodeMissingConfigKey, "config",
			"reading pipeline file", err)
	}

	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, pipeerr.Wrap(pipeerr.KindConfiguration, pipeerr.CodeUnknownConfigKey, "config",
			"parsing pipeline file", err)
	}

	applyDefaults(&cfg)
	cfg.loaded = true

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = getEnvString("PIPELINE_METRICS_LISTEN", ":9090")
	}
	if cfg.Backpressure.HighWaterMark == 0 {
		cfg.Backpressure.HighWaterMark = 10000
	}
	if cfg.Backpressure.LowWaterMark == 0 {
		cfg.Backpressure.LowWaterMark = cfg.Backpressure.HighWaterMark / 2
	}
	if cfg.WorkerPool.Workers == 0 {
		cfg.WorkerPool.Workers = 4
	}
	if cfg.WorkerPool.QueueSize == 0 {
		cfg.WorkerPool.QueueSize = cfg.WorkerPool.Workers * 10
	}
	for i := range cfg.Outputs {
		if cfg.Outputs[i].Name == "" {
			cfg.Outputs[i].Name = cfg.Outputs[i].Type
		}
		if cfg.Outputs[i].QueueSize == 0 {
			cfg.Outputs[i].QueueSize = 1000
		}
	}
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
