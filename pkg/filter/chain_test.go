package filter

import (
	"context"
	"testing"

	"ssw-logs-capture/pkg/record"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPlugin struct {
	schema  ConfigSchema
	initErr error
	result  Result
	procErr error
	calls   int
	exited  bool
}

func (s *stubPlugin) Schema() ConfigSchema { return s.schema }
func (s *stubPlugin) Init(RawConfig) error {
	return s.initErr
}
func (s *stubPlugin) FilterBatch(_ context.Context, _ string, _ record.EventType, data []byte) (Result, error) {
	s.calls++
	if s.procErr != nil {
		return Result{}, s.procErr
	}
	if s.result.Verdict == Modified && s.result.Buffer == nil {
		return Result{Verdict: Modified, Buffer: data}, nil
	}
	return s.result, nil
}
func (s *stubPlugin) Exit() error {
	s.exited = true
	return nil
}

func allTypes() []record.EventType {
	return []record.EventType{record.EventLogs, record.EventMetrics, record.EventTraces}
}

func TestChain_RegisterRejectsUnknownConfigKey(t *testing.T) {
	c := NewChain(logrus.New())
	p := &stubPlugin{schema: ConfigSchema{Accepted: []string{"Match"}}}
	err := c.Register("test", p, "*", allTypes(), RawConfig{"Bogus": {"x"}})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestChain_RegisterRejectsMissingRequiredKey(t *testing.T) {
	c := NewChain(logrus.New())
	p := &stubPlugin{schema: ConfigSchema{Accepted: []string{"Regex"}, Required: []string{"Regex"}}}
	err := c.Register("test", p, "*", allTypes(), RawConfig{})
	require.Error(t, err)
}

func TestChain_DispatchNotouchLeavesBufferIdentical(t *testing.T) {
	c := NewChain(logrus.New())
	p := &stubPlugin{result: Result{Verdict: Notouch}}
	require.NoError(t, c.Register("pass", p, "*", allTypes(), nil))
	require.NoError(t, c.Start())

	in := []byte{1, 2, 3}
	out, dropped, err := c.Dispatch(context.Background(), "app.log", record.EventLogs, in)
	require.NoError(t, err)
	assert.False(t, dropped)
	assert.Equal(t, in, out)
	assert.Equal(t, 1, p.calls)
}

func TestChain_DispatchDropShortCircuitsRemainingFilters(t *testing.T) {
	c := NewChain(logrus.New())
	dropper := &stubPlugin{result: Result{Verdict: Drop}}
	after := &stubPlugin{result: Result{Verdict: Notouch}}
	require.NoError(t, c.Register("dropper", dropper, "*", allTypes(), nil))
	require.NoError(t, c.Register("after", after, "*", allTypes(), nil))
	require.NoError(t, c.Start())

	out, dropped, err := c.Dispatch(context.Background(), "app.log", record.EventLogs, []byte{1})
	require.NoError(t, err)
	assert.True(t, dropped)
	assert.Nil(t, out)
	assert.Equal(t, 0, after.calls)
}

func TestChain_DispatchFatalErrorDropsOnlyThisBatch(t *testing.T) {
	c := NewChain(logrus.New())
	failing := &stubPlugin{procErr: assertAnError{}}
	require.NoError(t, c.Register("failing", failing, "*", allTypes(), nil))
	require.NoError(t, c.Start())

	_, dropped, err := c.Dispatch(context.Background(), "app.log", record.EventLogs, []byte{1})
	require.Error(t, err)
	assert.True(t, dropped)

	// The chain itself is unaffected; the next batch is dispatched normally.
	failing.procErr = nil
	failing.result = Result{Verdict: Notouch}
	_, dropped, err = c.Dispatch(context.Background(), "app.log", record.EventLogs, []byte{2})
	require.NoError(t, err)
	assert.False(t, dropped)
}

func TestChain_DispatchSkipsFiltersThatDoNotMatchTagOrEventType(t *testing.T) {
	c := NewChain(logrus.New())
	wrongTag := &stubPlugin{result: Result{Verdict: Drop}}
	wrongType := &stubPlugin{result: Result{Verdict: Drop}}
	require.NoError(t, c.Register("wrong-tag", wrongTag, "other.*", allTypes(), nil))
	require.NoError(t, c.Register("wrong-type", wrongType, "*", []record.EventType{record.EventMetrics}, nil))
	require.NoError(t, c.Start())

	out, dropped, err := c.Dispatch(context.Background(), "app.log", record.EventLogs, []byte{9})
	require.NoError(t, err)
	assert.False(t, dropped)
	assert.Equal(t, []byte{9}, out)
	assert.Equal(t, 0, wrongTag.calls)
	assert.Equal(t, 0, wrongType.calls)
}

func TestChain_ValidateEventTypesRejectsDisjointFilter(t *testing.T) {
	c := NewChain(logrus.New())
	p := &stubPlugin{result: Result{Verdict: Notouch}}
	require.NoError(t, c.Register("metrics-only", p, "*", []record.EventType{record.EventMetrics}, nil))

	err := c.ValidateEventTypes(map[record.EventType]bool{record.EventLogs: true})
	assert.Error(t, err)
}

func TestChain_StopCallsExitOnRunningFilters(t *testing.T) {
	c := NewChain(logrus.New())
	p := &stubPlugin{result: Result{Verdict: Notouch}}
	require.NoError(t, c.Register("test", p, "*", allTypes(), nil))
	require.NoError(t, c.Start())

	c.Stop()
	assert.True(t, p.exited)
}

type assertAnError struct{}

func (assertAnError) Error() string { return "boom" }
