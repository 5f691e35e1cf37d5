package filetail

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ssw-logs-capture/pkg/codec"
	"ssw-logs-capture/pkg/record"

	"github.com/stretchr/testify/require"
)

type collectingSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *collectingSink) Accept(_ context.Context, tag string, eventType record.EventType, data []byte) error {
	dec := codec.NewDecoder(data, false)
	rec, status, err := dec.Next()
	if err != nil || status != codec.StatusOK {
		return err
	}
	v, _ := rec.Body.Get("log")
	line, _ := v.AsString()

	s.mu.Lock()
	s.lines = append(s.lines, line)
	s.mu.Unlock()
	return nil
}

func (s *collectingSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func TestInput_TailsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	sink := &collectingSink{}
	in := New(Config{Path: path, Tag: "app.log"}, sink, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go in.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("hello\nworld\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) >= 2
	}, 2*time.Second, 20*time.Millisecond)

	require.Equal(t, []string{"hello", "world"}, sink.snapshot())
}
