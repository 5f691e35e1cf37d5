package resourcemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonitor_SamplesWithinOneInterval(t *testing.T) {
	m := New(Config{Interval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()
	<-done

	s := m.Latest()
	require.False(t, s.At.IsZero())
	require.Greater(t, s.Goroutines, 0)
}

func TestMonitor_StopEndsLoop(t *testing.T) {
	m := New(Config{Interval: time.Second}, nil)
	done := make(chan struct{})
	go func() {
		m.Start(context.Background())
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	m.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
