package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	b := New("kafka", Config{MaxFailures: 3, ResetTimeout: time.Minute})
	failing := errors.New("send failed")

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, b.Execute(func() error { return failing }), failing)
	}
	require.Equal(t, StateOpen, b.State())

	err := b.Execute(func() error { t.Fatal("fn must not run while open"); return nil })
	require.Error(t, err)
}

func TestBreaker_HalfOpenClosesOnSuccess(t *testing.T) {
	b := New("kafka", Config{MaxFailures: 1, ResetTimeout: time.Millisecond})
	require.Error(t, b.Execute(func() error { return errors.New("boom") }))
	require.Equal(t, StateOpen, b.State())

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, b.Execute(func() error { return nil }))
	require.Equal(t, StateClosed, b.State())
}
