package metrics

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskUsage(t *testing.T) {
	m := NewMetricsService(t.TempDir()).(*metricsService)

	usage, err := m.diskUsage()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, usage, 0)
	assert.LessOrEqual(t, usage, 100)
}

func TestDiskUsageOfMissingPath(t *testing.T) {
	m := NewMetricsService(filepath.Join(t.TempDir(), "missing")).(*metricsService)

	_, err := m.diskUsage()
	assert.Error(t, err)
	assert.Nil(t, m.HostMetrics())
}

func TestDefaultStoragePath(t *testing.T) {
	assert.Equal(t, "/", NewMetricsService("").(*metricsService).storagePath)
}
