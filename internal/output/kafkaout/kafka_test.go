package kafkaout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestOutput_SendToLocalBroker requires a Kafka broker at localhost:9092
// and is skipped in short mode.
func TestOutput_SendToLocalBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("requires a live Kafka broker")
	}

	out, err := New(Config{Brokers: []string{"localhost:9092"}, Topic: "pipeline-test"}, nil)
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, out.Send(context.Background(), "app.log", []byte("test-batch")))
}
