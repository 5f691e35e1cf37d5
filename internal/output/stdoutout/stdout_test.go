package stdoutout

import (
	"bytes"
	"testing"

	"ssw-logs-capture/pkg/codec"
	"ssw-logs-capture/pkg/record"

	"github.com/stretchr/testify/require"
)

func TestOutput_SendWritesOneLinePerRecord(t *testing.T) {
	enc := codec.NewEncoder(codec.TimestampNative)
	enc.BeginRecord()
	require.NoError(t, enc.AppendTimestamp(record.Timestamp{Sec: 1}))
	require.NoError(t, enc.AppendString(codec.FieldBody, "log", "hello"))
	require.NoError(t, enc.CommitRecord())
	enc.BeginRecord()
	require.NoError(t, enc.AppendTimestamp(record.Timestamp{Sec: 2}))
	require.NoError(t, enc.AppendString(codec.FieldBody, "log", "world"))
	require.NoError(t, enc.CommitRecord())

	var buf bytes.Buffer
	out := New(&buf)
	require.NoError(t, out.Send("app.log", enc.TakeBuffer()))

	lines := buf.String()
	require.Contains(t, lines, "app.log")
	require.Contains(t, lines, "log=hello")
	require.Contains(t, lines, "log=world")
}
