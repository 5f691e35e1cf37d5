package grepfilter

import (
	"bufio"
	"bytes"
	"strings"

	"ssw-logs-capture/pkg/filter"
)

// filterMetrics applies the same include/exclude algebra to a Prometheus
// text-exposition scrape payload, keyed on metric family name rather than
// a body field path. A family spans its `# HELP`/`# TYPE` comment lines
// plus every sample line sharing its name; families are kept or dropped as
// a unit.
func (f *Filter) filterMetrics(data []byte) (filter.Result, error) {
	if len(f.cfg.metricIncl) == 0 && len(f.cfg.metricExcl) == 0 {
		return filter.Result{Verdict: filter.Notouch}, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var out bytes.Buffer
	dropped := false
	for scanner.Scan() {
		line := scanner.Text()
		name := metricFamilyName(line)
		if name != "" && !f.keepMetric(name) {
			dropped = true
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return filter.Result{}, err
	}
	if !dropped {
		return filter.Result{Verdict: filter.Notouch}, nil
	}
	return filter.Result{Verdict: filter.Modified, Buffer: out.Bytes()}, nil
}

// metricFamilyName extracts a metric's family name from one exposition
// line: a `# HELP <name> ...` / `# TYPE <name> ...` comment, or a sample
// line `<name>{labels} value` / `<name> value`. Blank lines and other
// comments return "".
func metricFamilyName(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	if strings.HasPrefix(line, "#") {
		fields := strings.Fields(line)
		if len(fields) >= 3 && (fields[0] == "#") && (fields[1] == "HELP" || fields[1] == "TYPE") {
			return fields[2]
		}
		return ""
	}
	end := len(line)
	if brace := strings.IndexByte(line, '{'); brace >= 0 {
		end = brace
	} else if sp := strings.IndexByte(line, ' '); sp >= 0 {
		end = sp
	}
	return line[:end]
}

func (f *Filter) keepMetric(name string) bool {
	include := evalMetricGroup(f.cfg.metricIncl, f.cfg.op, name, true)
	exclude := evalMetricGroup(f.cfg.metricExcl, f.cfg.op, name, false)
	return include && !exclude
}

func evalMetricGroup(rules []Rule, op LogicalOp, name string, vacuousTrue bool) bool {
	if len(rules) == 0 {
		return vacuousTrue
	}

	effectiveOp := op
	if effectiveOp == OpLegacy {
		if vacuousTrue {
			effectiveOp = OpAnd
		} else {
			effectiveOp = OpOr
		}
	}

	if effectiveOp == OpAnd {
		for _, r := range rules {
			if !r.Pattern.MatchString(name) {
				return false
			}
		}
		return true
	}
	for _, r := range rules {
		if r.Pattern.MatchString(name) {
			return true
		}
	}
	return false
}
