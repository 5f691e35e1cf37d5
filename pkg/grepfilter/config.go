package grepfilter

import (
	"strconv"
	"strings"

	"ssw-logs-capture/pkg/filter"
	"ssw-logs-capture/pkg/pipeerr"
)

// LogicalOp selects how same-kind rules combine. The zero value, OpLegacy,
// reproduces the original behavior when no Logical_Op directive is given:
// includes AND together, excludes OR together.
type LogicalOp uint8

const (
	OpLegacy LogicalOp = iota
	OpAnd
	OpOr
)

func parseLogicalOp(s string) (LogicalOp, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AND":
		return OpAnd, true
	case "OR":
		return OpOr, true
	default:
		return 0, false
	}
}

// Schema is the grep filter's declarative configuration contract: the
// Match key is consumed by the chain for tag routing, not by the filter
// itself, but it must appear here so the chain's unknown-key check accepts
// it inside the same configuration section.
func Schema() filter.ConfigSchema {
	return filter.ConfigSchema{
		Accepted: []string{
			"Match", "Regex", "Exclude", "Logical_Op",
			"Metrics.Regex", "Metrics.Exclude",
		},
	}
}

// compiledConfig is the validated, compiled form of a grep configuration
// section. It is immutable after compilation, per the filter config
// invariant.
type compiledConfig struct {
	op         LogicalOp
	includes   []Rule
	excludes   []Rule
	metricIncl []Rule
	metricExcl []Rule
}

// compileConfig validates and compiles a raw configuration section. Rules
// of both kinds (Regex and Exclude, or Metrics.Regex and Metrics.Exclude)
// are always contradictory: Logical_Op only ever selects how rules of the
// SAME kind combine, never how include and exclude compose, so its
// presence does not relax the restriction.
func compileConfig(raw filter.RawConfig) (compiledConfig, error) {
	var cfg compiledConfig

	opStr, hasOp := raw.First("Logical_Op")
	if hasOp {
		op, ok := parseLogicalOp(opStr)
		if !ok {
			return compiledConfig{}, pipeerr.New(pipeerr.KindConfiguration, pipeerr.CodeContradictoryRules, "grep",
				"Logical_Op must be AND or OR, got "+strconv.Quote(opStr))
		}
		cfg.op = op
	}

	if len(raw["Regex"]) > 0 && len(raw["Exclude"]) > 0 {
		return compiledConfig{}, pipeerr.New(pipeerr.KindConfiguration, pipeerr.CodeContradictoryRules, "grep",
			"Regex and Exclude cannot both be set on the same filter")
	}
	if len(raw["Metrics.Regex"]) > 0 && len(raw["Metrics.Exclude"]) > 0 {
		return compiledConfig{}, pipeerr.New(pipeerr.KindConfiguration, pipeerr.CodeContradictoryRules, "grep",
			"Metrics.Regex and Metrics.Exclude cannot both be set on the same filter")
	}

	for _, v := range raw["Regex"] {
		r, err := compileRule(Include, v)
		if err != nil {
			return compiledConfig{}, err
		}
		cfg.includes = append(cfg.includes, r)
	}
	for _, v := range raw["Exclude"] {
		r, err := compileRule(Exclude, v)
		if err != nil {
			return compiledConfig{}, err
		}
		cfg.excludes = append(cfg.excludes, r)
	}
	for _, v := range raw["Metrics.Regex"] {
		r, err := compileMetricRule(Include, v)
		if err != nil {
			return compiledConfig{}, err
		}
		cfg.metricIncl = append(cfg.metricIncl, r)
	}
	for _, v := range raw["Metrics.Exclude"] {
		r, err := compileMetricRule(Exclude, v)
		if err != nil {
			return compiledConfig{}, err
		}
		cfg.metricExcl = append(cfg.metricExcl, r)
	}

	return cfg, nil
}
