// Package resourcemon periodically samples CPU and memory usage for
// metrics export. CPU and memory figures are host-wide (all processes),
// not this process alone; goroutine and heap figures are this process's. It does not gate pipeline behavior itself — the
// high/low water-mark decision in pkg/backpressure is keyed on queue
// depth alone, per the concurrency model's back-pressure contract.
package resourcemon

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// Config tunes the sampling interval.
type Config struct {
	Interval time.Duration `yaml:"interval"`
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
	return c
}

// Sample is one point-in-time resource reading.
type Sample struct {
	At            time.Time
	CPUPercent    float64
	MemoryRSS     uint64
	MemoryPercent float64
	Goroutines    int
	HeapAlloc     uint64
}

// Monitor samples resource usage on a fixed interval and keeps the most
// recent Sample available to readers under a read lock.
type Monitor struct {
	config Config
	logger *logrus.Logger

	mu      sync.RWMutex
	latest  Sample
	stop    chan struct{}
	stopped chan struct{}
}

// New constructs a Monitor. Sampling does not start until Start.
func New(config Config, logger *logrus.Logger) *Monitor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Monitor{config: config.withDefaults(), logger: logger}
}

// Start launches the sampling loop and blocks until ctx is canceled.
func (m *Monitor) Start(ctx context.Context) {
	m.stop = make(chan struct{})
	m.stopped = make(chan struct{})
	defer close(m.stopped)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.sample()
	for {
		select {
		case <-ticker.C:
			m.sample()
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		}
	}
}

// Stop signals the sampling loop to exit and waits for it to do so.
func (m *Monitor) Stop() {
	if m.stop == nil {
		return
	}
	close(m.stop)
	<-m.stopped
}

func (m *Monitor) sample() {
	s := Sample{At: time.Now(), Goroutines: runtime.NumGoroutine()}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.HeapAlloc = ms.HeapAlloc

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		s.CPUPercent = percents[0]
	} else if err != nil {
		m.logger.WithError(err).Debug("resourcemon: cpu sample failed")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemoryRSS = vm.Used
		s.MemoryPercent = vm.UsedPercent
	} else {
		m.logger.WithError(err).Debug("resourcemon: memory sample failed")
	}

	m.mu.Lock()
	m.latest = s
	m.mu.Unlock()
}

// Latest returns the most recent Sample taken.
func (m *Monitor) Latest() Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}
