package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistry_ServesMetricsEndpoint(t *testing.T) {
	reg := New()
	reg.RecordsIn.WithLabelValues("app.log").Inc()

	require.NoError(t, reg.Serve("127.0.0.1:19091"))
	defer reg.Shutdown(context.Background())

	time.Sleep(20 * time.Millisecond)
	resp, err := http.Get("http://127.0.0.1:19091/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "pipeline_records_in_total")
}

func TestRegistry_TwoInstancesDoNotCollide(t *testing.T) {
	a := New()
	b := New()
	a.RecordsIn.WithLabelValues("x").Inc()
	b.RecordsIn.WithLabelValues("x").Inc()
}
