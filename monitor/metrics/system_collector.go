// Package metrics observes the monitor process itself so operators can tell
// monitoring overhead apart from authority slowness.
package metrics

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/jimfhahn/qa-server/monitor/types"
)

// SystemCollector samples process and host resource usage on an interval and
// keeps the latest snapshot for the API.
type SystemCollector struct {
	mu           sync.RWMutex
	latest       types.SystemMetrics
	isCollecting bool
	stopCh       chan struct{}
	interval     time.Duration
	proc         *process.Process
	lastNetStats net.IOCountersStat
}

// NewSystemCollector creates a collector sampling at the given interval.
func NewSystemCollector(interval time.Duration) (*SystemCollector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}

	return &SystemCollector{
		interval: interval,
		proc:     proc,
	}, nil
}

// Start begins the collection loop. Calling Start twice is a no-op; a
// stopped collector may be started again.
func (sc *SystemCollector) Start() {
	sc.mu.Lock()
	if sc.isCollecting {
		sc.mu.Unlock()
		return
	}
	sc.isCollecting = true
	sc.stopCh = make(chan struct{})
	stopCh := sc.stopCh
	sc.mu.Unlock()

	if netStats, err := net.IOCounters(false); err == nil && len(netStats) > 0 {
		sc.mu.Lock()
		sc.lastNetStats = netStats[0]
		sc.mu.Unlock()
	}

	go sc.collect(stopCh)
}

// Stop halts the collection loop.
func (sc *SystemCollector) Stop() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.isCollecting {
		return
	}
	sc.isCollecting = false
	close(sc.stopCh)
}

// Snapshot returns the most recent metrics sample.
func (sc *SystemCollector) Snapshot() types.SystemMetrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.latest
}

func (sc *SystemCollector) collect(stopCh <-chan struct{}) {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	// Take one sample up front so the API never serves a zero snapshot.
	sc.store(sc.collectMetric())

	for {
		select {
		case <-ticker.C:
			sc.store(sc.collectMetric())
		case <-stopCh:
			return
		}
	}
}

func (sc *SystemCollector) store(m types.SystemMetrics) {
	sc.mu.Lock()
	sc.latest = m
	sc.mu.Unlock()
}

func (sc *SystemCollector) collectMetric() types.SystemMetrics {
	metric := types.SystemMetrics{
		Timestamp:      time.Now(),
		GoroutineCount: runtime.NumGoroutine(),
	}

	if cpuPercent, err := sc.proc.CPUPercent(); err == nil {
		metric.CPUUsage = cpuPercent
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		metric.MemoryPercent = memInfo.UsedPercent
	}

	if procMem, err := sc.proc.MemoryInfo(); err == nil {
		metric.MemoryUsageMB = float64(procMem.RSS) / 1024 / 1024
	}

	if netStats, err := net.IOCounters(false); err == nil && len(netStats) > 0 {
		current := netStats[0]
		sc.mu.Lock()
		metric.NetworkBytesSent = int64(current.BytesSent - sc.lastNetStats.BytesSent)
		metric.NetworkBytesRecv = int64(current.BytesRecv - sc.lastNetStats.BytesRecv)
		sc.lastNetStats = current
		sc.mu.Unlock()
	}

	if connections, err := sc.proc.Connections(); err == nil {
		metric.OpenConnections = int64(len(connections))
	}

	return metric
}
