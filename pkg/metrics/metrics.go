package metrics

import (
	"fmt"
	"math"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/dennishilgert/fnexec/pkg/logger"
)

var log = logger.NewLogger("fnexec.metrics")

// HostMetrics holds utilization percentages of the host.
type HostMetrics struct {
	CpuUsage     int `json:"cpuUsage"`
	MemoryUsage  int `json:"memoryUsage"`
	StorageUsage int `json:"storageUsage"`
}

type MetricsService interface {
	// HostMetrics returns the current utilization or nil if it cannot be measured.
	HostMetrics() *HostMetrics
}

type metricsService struct {
	storagePath string
}

// NewMetricsService creates a new MetricsService measuring storage usage at storagePath.
func NewMetricsService(storagePath string) MetricsService {
	if storagePath == "" {
		storagePath = "/"
	}
	return &metricsService{
		storagePath: storagePath,
	}
}

func (m *metricsService) HostMetrics() *HostMetrics {
	cpuUsage, err := m.cpuUsage()
	if err != nil {
		log.Warnf("failed to build host metrics: %v", err)
		return nil
	}
	memUsage, err := m.memoryUsage()
	if err != nil {
		log.Warnf("failed to build host metrics: %v", err)
		return nil
	}
	diskUsage, err := m.diskUsage()
	if err != nil {
		log.Warnf("failed to build host metrics: %v", err)
		return nil
	}
	return &HostMetrics{
		CpuUsage:     cpuUsage,
		MemoryUsage:  memUsage,
		StorageUsage: diskUsage,
	}
}

// cpuUsage returns the current CPU usage in percent.
func (m *metricsService) cpuUsage() (int, error) {
	percent, err := cpu.Percent(0, false)
	if err != nil {
		return 0, fmt.Errorf("failed to get cpu usage: %w", err)
	}
	if len(percent) > 0 {
		return int(math.Round(percent[0])), nil
	}
	return 0, nil
}

// memoryUsage returns the current memory usage in percent.
func (m *metricsService) memoryUsage() (int, error) {
	stat, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("failed to get memory usage: %w", err)
	}
	return int(math.Round(stat.UsedPercent)), nil
}

// diskUsage returns the usage of the filesystem holding the storage path in percent.
func (m *metricsService) diskUsage() (int, error) {
	stat, err := disk.Usage(m.storagePath)
	if err != nil {
		return 0, fmt.Errorf("failed to get disk usage of %s: %w", m.storagePath, err)
	}
	return int(math.Round(stat.UsedPercent)), nil
}
