package grepfilter

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"ssw-logs-capture/pkg/codec"
	"ssw-logs-capture/pkg/filter"
	"ssw-logs-capture/pkg/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeBatch(t *testing.T, bodies []map[string]string) []byte {
	t.Helper()
	enc := codec.NewEncoder(codec.TimestampNative)
	for i, body := range bodies {
		enc.BeginRecord()
		require.NoError(t, enc.AppendTimestamp(record.Timestamp{Sec: uint32(i), Nsec: 0}))
		for k, v := range body {
			require.NoError(t, enc.AppendString(codec.FieldBody, k, v))
		}
		require.NoError(t, enc.CommitRecord())
	}
	return enc.TakeBuffer()
}

func countRecords(t *testing.T, data []byte) int {
	t.Helper()
	dec := codec.NewDecoder(data, false)
	n := 0
	for {
		_, status, err := dec.Next()
		switch status {
		case codec.StatusOK:
			n++
		case codec.StatusEnd:
			return n
		default:
			require.NoError(t, err)
			return n
		}
	}
}

func newFilter(t *testing.T, raw filter.RawConfig) *Filter {
	t.Helper()
	f := New(codec.TimestampNative)
	require.NoError(t, f.Init(raw))
	return f
}

// S1 — include with single regex.
func TestFilter_S1_IncludeSingleRegex(t *testing.T) {
	var bodies []map[string]string
	want := 0
	for i := 0; i < 256; i++ {
		val := strconv.Itoa(i * i)
		if strings.Contains(val, "1") {
			want++
		}
		bodies = append(bodies, map[string]string{"val": val, "END_KEY": "JSON_END"})
	}
	data := encodeBatch(t, bodies)

	f := newFilter(t, filter.RawConfig{"Regex": {"val 1"}})
	result, err := f.FilterBatch(context.Background(), "t", record.EventLogs, data)
	require.NoError(t, err)
	require.Equal(t, filter.Modified, result.Verdict)
	assert.Equal(t, 84, want)
	assert.Equal(t, want, countRecords(t, result.Buffer))
}

func alternatingLogBodies() []map[string]string {
	var bodies []map[string]string
	for i := 0; i < 512; i++ {
		if i%2 == 0 {
			bodies = append(bodies, map[string]string{"log": "Using deprecated option"})
		} else {
			bodies = append(bodies, map[string]string{"log": "Using option"})
		}
	}
	return bodies
}

// S2 — multi-exclude as OR (legacy).
func TestFilter_S2_MultiExcludeOrLegacy(t *testing.T) {
	data := encodeBatch(t, alternatingLogBodies())
	f := newFilter(t, filter.RawConfig{"Exclude": {"log deprecated", "log hoge"}})
	result, err := f.FilterBatch(context.Background(), "t", record.EventLogs, data)
	require.NoError(t, err)
	require.Equal(t, filter.Modified, result.Verdict)
	assert.Equal(t, 256, countRecords(t, result.Buffer))
}

// S3 — multi-regex as AND (legacy).
func TestFilter_S3_MultiRegexAndLegacy(t *testing.T) {
	data := encodeBatch(t, alternatingLogBodies())
	f := newFilter(t, filter.RawConfig{"Regex": {"log deprecated", "log option"}})
	result, err := f.FilterBatch(context.Background(), "t", record.EventLogs, data)
	require.NoError(t, err)
	require.Equal(t, filter.Modified, result.Verdict)
	assert.Equal(t, 256, countRecords(t, result.Buffer))
}

// S4 — Logical_Op: OR on regex.
func TestFilter_S4_LogicalOpOr(t *testing.T) {
	data := encodeBatch(t, alternatingLogBodies())
	f := newFilter(t, filter.RawConfig{
		"Regex":      {"log deprecated", "log option"},
		"Logical_Op": {"OR"},
	})
	result, err := f.FilterBatch(context.Background(), "t", record.EventLogs, data)
	require.NoError(t, err)
	assert.Equal(t, filter.Notouch, result.Verdict)
}

// S5 — configuration rejection.
func TestFilter_S5_ConfigRejection(t *testing.T) {
	f := New(codec.TimestampNative)
	err := f.Init(filter.RawConfig{
		"Regex":      {"val 1"},
		"Exclude":    {"val2 3"},
		"Logical_Op": {"AND"},
	})
	assert.Error(t, err)
}

// S6 — slash-delimited regex (issue 5209).
func TestFilter_S6_SlashDelimitedRegex(t *testing.T) {
	var bodies []map[string]string
	for i := 0; i < 256; i++ {
		bodies = append(bodies, map[string]string{"END_KEY": "JSON_END"})
	}
	for i := 0; i < 256; i++ {
		bodies = append(bodies, map[string]string{"log": "Using deprecated option"})
	}
	data := encodeBatch(t, bodies)

	f := newFilter(t, filter.RawConfig{"Exclude": {"log /Using deprecated option/"}})
	result, err := f.FilterBatch(context.Background(), "t", record.EventLogs, data)
	require.NoError(t, err)
	require.Equal(t, filter.Modified, result.Verdict)
	assert.Equal(t, 256, countRecords(t, result.Buffer))
}

func TestFilter_UnresolvedFieldPathIsNoMatch(t *testing.T) {
	data := encodeBatch(t, []map[string]string{{"other": "x"}})
	f := newFilter(t, filter.RawConfig{"Regex": {"missing anything"}})
	result, err := f.FilterBatch(context.Background(), "t", record.EventLogs, data)
	require.NoError(t, err)
	require.Equal(t, filter.Modified, result.Verdict)
	assert.Equal(t, 0, countRecords(t, result.Buffer))
}

func TestFilterMetrics_ExcludeDropsFamily(t *testing.T) {
	payload := []byte("# HELP http_requests_total total requests\n" +
		"# TYPE http_requests_total counter\n" +
		"http_requests_total{method=\"GET\"} 1\n" +
		"# HELP process_uptime_seconds uptime\n" +
		"# TYPE process_uptime_seconds gauge\n" +
		"process_uptime_seconds 42\n")

	f := newFilter(t, filter.RawConfig{"Metrics.Exclude": {"http_.*"}})
	result, err := f.FilterBatch(context.Background(), "t", record.EventMetrics, payload)
	require.NoError(t, err)
	require.Equal(t, filter.Modified, result.Verdict)
	assert.NotContains(t, string(result.Buffer), "http_requests_total")
	assert.Contains(t, string(result.Buffer), "process_uptime_seconds")
}
