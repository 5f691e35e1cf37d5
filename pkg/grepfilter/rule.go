// Package grepfilter implements the reference filter: regular-expression
// inclusion and exclusion rules over record fields, combined under a
// configurable AND/OR algebra.
package grepfilter

import (
	"regexp"
	"strconv"
	"strings"

	"ssw-logs-capture/pkg/pipeerr"
)

// Kind distinguishes an include rule from an exclude rule.
type Kind uint8

const (
	Include Kind = iota
	Exclude
)

// Rule is one compiled `<field_path> <regex>` directive.
type Rule struct {
	Kind      Kind
	FieldPath []string
	Pattern   *regexp.Regexp
	raw       string
}

// parseDirective splits a `Regex`/`Exclude` directive value into its field
// path and regex text. The regex half is either bare text running to the
// end of the line or `/slash-delimited/`, which lets the pattern itself
// contain spaces.
func parseDirective(value string) (fieldPath, pattern string, ok bool) {
	value = strings.TrimSpace(value)
	sp := strings.IndexByte(value, ' ')
	if sp < 0 {
		return "", "", false
	}
	fieldPath = value[:sp]
	rest := strings.TrimSpace(value[sp+1:])
	if fieldPath == "" || rest == "" {
		return "", "", false
	}
	if len(rest) >= 2 && rest[0] == '/' && rest[len(rest)-1] == '/' {
		rest = rest[1 : len(rest)-1]
	}
	return fieldPath, rest, true
}

// compileRule parses and compiles one directive value into a Rule of the
// given kind. Go's regexp package is RE2-based: every match runs in time
// linear in the input, satisfying the bounded-match-time requirement
// without needing a separate "safe regex" dependency.
func compileRule(kind Kind, value string) (Rule, error) {
	fieldPath, pattern, ok := parseDirective(value)
	if !ok {
		return Rule{}, pipeerr.New(pipeerr.KindConfiguration, pipeerr.CodeInvalidFieldPath, "grep",
			"malformed rule directive: "+strconv.Quote(value))
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, pipeerr.Wrap(pipeerr.KindConfiguration, pipeerr.CodeInvalidRegex, "grep",
			"invalid regex in rule "+strconv.Quote(value), err)
	}
	return Rule{
		Kind:      kind,
		FieldPath: strings.Split(fieldPath, "."),
		Pattern:   re,
		raw:       value,
	}, nil
}

// compileMetricRule compiles a `Metrics.Regex`/`Metrics.Exclude` directive,
// which is a bare regex with no field path: it matches against a metric
// family name directly.
func compileMetricRule(kind Kind, value string) (Rule, error) {
	value = strings.TrimSpace(value)
	if len(value) >= 2 && value[0] == '/' && value[len(value)-1] == '/' {
		value = value[1 : len(value)-1]
	}
	re, err := regexp.Compile(value)
	if err != nil {
		return Rule{}, pipeerr.Wrap(pipeerr.KindConfiguration, pipeerr.CodeInvalidRegex, "grep",
			"invalid metrics regex", err)
	}
	return Rule{Kind: kind, Pattern: re, raw: value}, nil
}
