// Package filter implements the dispatch contract between the pipeline and
// its registered transformation stages: the Filter plugin ABI, the chain
// that routes batches to matching filters in order, and the
// UNINITIALIZED -> CONFIGURED -> RUNNING -> STOPPED (+ terminal INVALID)
// lifecycle every filter goes through.
package filter

import (
	"context"

	"ssw-logs-capture/pkg/pipeerr"
	"ssw-logs-capture/pkg/record"
)

// Verdict is one of the three outcomes a filter callback may return for a
// batch.
type Verdict uint8

const (
	// Notouch forwards the incoming buffer unchanged; no allocation.
	Notouch Verdict = iota
	// Modified adopts a new buffer for subsequent filters; the chain
	// releases the old one.
	Modified
	// Drop aborts the chain for this batch; Chain.Dispatch reports it as
	// dropped with a nil buffer, so no records reach outputs.
	Drop
)

func (v Verdict) String() string {
	switch v {
	case Notouch:
		return "NOTOUCH"
	case Modified:
		return "MODIFIED"
	case Drop:
		return "DROP"
	default:
		return "UNKNOWN"
	}
}

// Result is a filter callback's verdict for one batch.
type Result struct {
	Verdict Verdict
	Buffer  []byte // meaningful only when Verdict == Modified
}

// RawConfig is a parsed filter configuration section: an ordered mapping
// from directive name to one or more values, since directives such as
// Regex and Exclude are repeatable. A single-valued directive is simply a
// slice of length one.
type RawConfig map[string][]string

// First returns the first value associated with key, if any.
func (c RawConfig) First(key string) (string, bool) {
	v, ok := c[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// ConfigSchema declares which configuration keys a filter accepts and
// which of those are mandatory. The chain validates every filter's
// configuration against this before calling Init — unknown keys and
// missing required keys are both fatal at pipeline start.
type ConfigSchema struct {
	Accepted []string
	Required []string
}

// Accepts reports whether key is one of the filter's declared keys.
func (s ConfigSchema) Accepts(key string) bool {
	for _, k := range s.Accepted {
		if k == key {
			return true
		}
	}
	return false
}

// Plugin is the ABI every filter implements: three lifecycle methods plus a
// declarative configuration schema, mirroring the source's C vtable
// (init/filter/exit) without the variadic setter — the chain validates and
// parses configuration before Init ever sees it.
type Plugin interface {
	// Schema declares accepted and required configuration keys.
	Schema() ConfigSchema
	// Init parses config, which has already been validated against
	// Schema by the chain. A non-nil error is a configuration error:
	// fatal at pipeline start.
	Init(config RawConfig) error
	// FilterBatch applies the filter to one batch of encoded records
	// tagged tag. Must complete within one event-loop tick: no blocking
	// I/O.
	FilterBatch(ctx context.Context, tag string, eventType record.EventType, data []byte) (Result, error)
	// Exit releases any resources acquired by Init.
	Exit() error
}

// State is a filter's position in the UNINITIALIZED -> CONFIGURED ->
// RUNNING -> STOPPED lifecycle, with INVALID as the terminal state reached
// directly from UNINITIALIZED on a configuration error.
type State uint8

const (
	StateUninitialized State = iota
	StateConfigured
	StateRunning
	StateStopped
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateConfigured:
		return "CONFIGURED"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	case StateInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

func configError(component, msg string) *pipeerr.Error {
	return pipeerr.New(pipeerr.KindConfiguration, pipeerr.CodeMissingConfigKey, component, msg)
}

// validateConfig enforces the chain's configuration validation rule:
// unknown keys and missing required keys are both fatal.
func validateConfig(schema ConfigSchema, config RawConfig) error {
	for key := range config {
		if !schema.Accepts(key) {
			return pipeerr.New(pipeerr.KindConfiguration, pipeerr.CodeUnknownConfigKey, "filter",
				"unknown configuration key: "+key)
		}
	}
	for _, req := range schema.Required {
		if _, ok := config[req]; !ok {
			return configError("filter", "missing required configuration key: "+req)
		}
	}
	return nil
}
