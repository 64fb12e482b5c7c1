package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"eeg-workload-be/pkg/eeg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PIPELINE_CONFIG_PATH", "")
	t.Setenv("PERSIST_RAW", "false")
	t.Setenv("PERSIST_FLUSH_INTERVAL", "2")
	t.Setenv("INGEST_AUTH_TIMEOUT", "1500ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Ingest.PersistRaw)
	assert.True(t, cfg.Ingest.PersistFeatures)
	assert.Equal(t, 2*time.Second, cfg.Persistence.FlushInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.Ingest.AuthTimeout)
	assert.Equal(t, 50, cfg.Persistence.BatchSize)
	assert.Equal(t, 250.0, cfg.Pipeline.SamplingRate)
}

func TestLoadPipelineOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sampling_rate: 256
window:
  size: 2
  overlap: 1
weights:
  frontal_theta: 0.2
`), 0o600))

	cfg, err := LoadPipeline(path, 250)
	require.NoError(t, err)

	assert.Equal(t, 256.0, cfg.SamplingRate)
	assert.Equal(t, eeg.WindowConfig{Size: 2, Overlap: 1}, cfg.Window)
	assert.Equal(t, 0.2, cfg.Weights[eeg.MetricFrontalTheta])
	assert.Equal(t, 0.45, cfg.Weights[eeg.MetricParietalAlpha], "unset weights keep defaults")
	assert.Equal(t, []int{0, 1}, cfg.ChannelGroups[eeg.GroupFrontal])
}

func TestLoadPipelineRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("filter:\n  low: 30\n  high: 10\n"), 0o600))

	_, err := LoadPipeline(path, 250)
	assert.ErrorIs(t, err, eeg.ErrInvalidConfig)

	_, err = LoadPipeline(filepath.Join(t.TempDir(), "missing.yaml"), 250)
	assert.Error(t, err)
}
