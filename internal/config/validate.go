package config

import (
	"fmt"
	"strings"

	"ssw-logs-capture/pkg/pipeerr"
)

// ConfigValidator accumulates every configuration problem found so an
// operator sees all of them at once instead of fixing one typo per run.
type ConfigValidator struct {
	cfg    *Config
	errors []string
}

// ValidateConfig rejects a Config with no inputs, no outputs, or any
// entry of an unrecognized type. Per-filter rule contradictions (e.g.
// grep's Regex+Exclude) are caught later by that filter's own Init, since
// only the filter knows its own directive grammar.
func ValidateConfig(cfg *Config) error {
	v := &ConfigValidator{cfg: cfg}
	v.validateInputs()
	v.validateFilters()
	v.validateOutputs()
	v.validateMetrics()
	return v.result()
}

func (v *ConfigValidator) addError(component, message string) {
	v.errors = append(v.errors, fmt.Sprintf("%s: %s", component, message))
}

func (v *ConfigValidator) validateInputs() {
	if len(v.cfg.Inputs) == 0 {
		v.addError("inputs", "at least one input is required")
	}
	for i, in := range v.cfg.Inputs {
		if in.Type != "file" {
			v.addError("inputs", fmt.Sprintf("input[%d]: unsupported type %q", i, in.Type))
		}
		if in.Path == "" {
			v.addError("inputs", fmt.Sprintf("input[%d]: path is required", i))
		}
		if in.Tag == "" {
			v.addError("inputs", fmt.Sprintf("input[%d]: tag is required", i))
		}
	}
}

func (v *ConfigValidator) validateFilters() {
	for i, f := range v.cfg.Filters {
		switch f.Type {
		case "grep", "dedup":
		default:
			v.addError("filters", fmt.Sprintf("filter[%d]: unsupported type %q", i, f.Type))
		}
		if f.Match == "" {
			v.addError("filters", fmt.Sprintf("filter[%d]: match pattern is required", i))
		}
	}
}

func (v *ConfigValidator) validateOutputs() {
	if len(v.cfg.Outputs) == 0 {
		v.addError("outputs", "at least one output is required")
	}
	for i, out := range v.cfg.Outputs {
		switch out.Type {
		case "kafka":
			if len(out.Brokers) == 0 {
				v.addError("outputs", fmt.Sprintf("output[%d]: kafka requires at least one broker", i))
			}
			if out.Topic == "" {
				v.addError("outputs", fmt.Sprintf("output[%d]: kafka requires a topic", i))
			}
		case "stdout":
		default:
			v.addError("outputs", fmt.Sprintf("output[%d]: unsupported type %q", i, out.Type))
		}
	}
}

func (v *ConfigValidator) validateMetrics() {
	if v.cfg.Metrics.Enabled && v.cfg.Metrics.Listen == "" {
		v.addError("metrics", "listen address is required when metrics are enabled")
	}
}

func (v *ConfigValidator) result() error {
	if len(v.errors) == 0 {
		return nil
	}
	return pipeerr.New(pipeerr.KindConfiguration, pipeerr.CodeMissingConfigKey, "config",
		strings.Join(v.errors, "; "))
}
