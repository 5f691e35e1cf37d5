package dedupfilter

import (
	"context"
	"testing"

	"ssw-logs-capture/pkg/codec"
	"ssw-logs-capture/pkg/filter"
	"ssw-logs-capture/pkg/record"

	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, vals []string) []byte {
	t.Helper()
	enc := codec.NewEncoder(codec.TimestampNative)
	for i, v := range vals {
		enc.BeginRecord()
		require.NoError(t, enc.AppendTimestamp(record.Timestamp{Sec: uint32(i)}))
		require.NoError(t, enc.AppendString(codec.FieldBody, "msg", v))
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
		require.NoError(t, err)
		if status == codec.StatusOK {
			n++
			continue
		}
		return n
	}
}

func TestFilter_DropsRepeatedFingerprint(t *testing.T) {
	f := New(codec.TimestampNative)
	require.NoError(t, f.Init(filter.RawConfig{"TTL": {"1h"}}))

	data := encode(t, []string{"a", "b", "a", "a", "c"})
	result, err := f.FilterBatch(context.Background(), "t", record.EventLogs, data)
	require.NoError(t, err)
	require.Equal(t, filter.Modified, result.Verdict)
	require.Equal(t, 3, countRecords(t, result.Buffer))
}

func TestFilter_AllUniqueIsNotouch(t *testing.T) {
	f := New(codec.TimestampNative)
	require.NoError(t, f.Init(filter.RawConfig{}))

	data := encode(t, []string{"a", "b", "c"})
	result, err := f.FilterBatch(context.Background(), "t", record.EventLogs, data)
	require.NoError(t, err)
	require.Equal(t, filter.Notouch, result.Verdict)
}
