package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_ValidMinimalPipeline(t *testing.T) {
	path := writeTempConfig(t, `
inputs:
  - type: file
    path: /var/log/app.log
    tag: app.log
outputs:
  - type: stdout
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Metrics.Listen)
	require.Equal(t, 10000, cfg.Backpressure.HighWaterMark)
	require.Equal(t, "stdout", cfg.Outputs[0].Name)
}

func TestLoadConfig_RejectsMissingOutputs(t *testing.T) {
	path := writeTempConfig(t, `
inputs:
  - type: file
    path: /var/log/app.log
    tag: app.log
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_RejectsUnknownTopLevelKey(t *testing.T) {
	path := writeTempConfig(t, `
inputs:
  - type: file
    path: /var/log/app.log
    tag: app.log
outputs:
  - type: stdout
bogus_key: true
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_RejectsKafkaOutputWithoutBrokers(t *testing.T) {
	path := writeTempConfig(t, `
inputs:
  - type: file
    path: /var/log/app.log
    tag: app.log
outputs:
  - type: kafka
    topic: telemetry
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
}
