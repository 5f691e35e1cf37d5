package host

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"ssw-logs-capture/internal/config"
	"ssw-logs-capture/pkg/backpressure"
	"ssw-logs-capture/pkg/circuitbreaker"
	"ssw-logs-capture/pkg/codec"
	"ssw-logs-capture/pkg/filter"
	"ssw-logs-capture/pkg/metrics"
	"ssw-logs-capture/pkg/record"
	"ssw-logs-capture/pkg/workerpool"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func encodeOneRecord(t *testing.T, body string) []byte {
	t.Helper()
	enc := codec.NewEncoder(codec.TimestampNative)
	enc.BeginRecord()
	require.NoError(t, enc.AppendTimestamp(record.Timestamp{Sec: 1}))
	require.NoError(t, enc.AppendString(codec.FieldBody, "log", body))
	require.NoError(t, enc.CommitRecord())
	return enc.TakeBuffer()
}

type countingSender struct {
	count int64
}

func (s *countingSender) Send(_ context.Context, _ string, _ []byte) error {
	atomic.AddInt64(&s.count, 1)
	return nil
}

func newTestHost(t *testing.T) (*Host, *countingSender) {
	t.Helper()
	sender := &countingSender{}
	h := &Host{
		cfg:    &config.Config{},
		logger: nil,
		chain:  filter.NewChain(nil),
		outputs: []*outputBinding{{
			name: "test",
			send: sender,
		}},
		pool: workerpool.New(workerpool.Config{Workers: 1, QueueSize: 10}, nil),
	}
	h.metrics = metrics.New()
	for _, ob := range h.outputs {
		ob.breaker = circuitbreaker.New(ob.name, circuitbreaker.Config{})
		ob.backpressure = backpressure.NewManager(backpressure.Config{}, nil)
	}
	require.NoError(t, h.chain.Start())
	require.NoError(t, h.pool.Start())
	return h, sender
}

func TestHost_AcceptFansOutToEveryOutput(t *testing.T) {
	h, sender := newTestHost(t)
	defer h.pool.Stop()

	data := encodeOneRecord(t, "hello")
	require.NoError(t, h.Accept(context.Background(), "app.log", record.EventLogs, data))

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&sender.count) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHost_NoGoroutineLeakAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("github.com/sirupsen/logrus.*"),
	)

	h, _ := newTestHost(t)
	data := encodeOneRecord(t, "hello")
	require.NoError(t, h.Accept(context.Background(), "app.log", record.EventLogs, data))

	time.Sleep(20 * time.Millisecond)
	h.chain.Stop()
	h.pool.Stop()
}
