// Package backpressure implements the high/low water-mark pause-resume
// signal between an output queue and the input that feeds it.
package backpressure

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Config configures the water marks an output queue is watched against.
type Config struct {
	HighWaterMark int `yaml:"high_water_mark"`
	LowWaterMark  int `yaml:"low_water_mark"`
}

// Manager watches one output queue's depth and reports whether the input
// feeding it should pause. It holds no goroutine of its own: Observe is
// called by the host on every batch it enqueues and, while the input is
// paused, on every poll of the queue depth.
type Manager struct {
	config Config
	logger *logrus.Logger

	mu              sync.RWMutex
	paused          bool
	lastChange      time.Time
	pauseCount      int64
}

// NewManager constructs a Manager. A zero HighWaterMark disables
// back-pressure entirely — Observe always returns false.
func NewManager(config Config, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{config: config, logger: logger}
}

// Observe reports the current queue depth and returns whether the input
// should be paused. Pausing is sticky: once the high-water mark trips, the
// input stays paused until depth falls to or below the low-water mark,
// which prevents rapid pause/resume flapping right at the threshold.
func (m *Manager) Observe(depth int) bool {
	if m.config.HighWaterMark <= 0 {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case !m.paused && depth >= m.config.HighWaterMark:
		m.paused = true
		m.lastChange = time.Now()
		m.pauseCount++
		m.logger.WithFields(logrus.Fields{
			"depth":           depth,
			"high_water_mark": m.config.HighWaterMark,
		}).Warn("Output queue crossed high water mark; pausing input")
	case m.paused && depth <= m.config.LowWaterMark:
		m.paused = false
		m.lastChange = time.Now()
		m.logger.WithFields(logrus.Fields{
			"depth":          depth,
			"low_water_mark": m.config.LowWaterMark,
		}).Info("Output queue drained below low water mark; resuming input")
	}
	return m.paused
}

// Paused reports the current pause state without taking a new
// observation.
func (m *Manager) Paused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Stats reports a snapshot for diagnostics and metrics export.
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]interface{}{
		"paused":      m.paused,
		"last_change": m.lastChange,
		"pause_count": m.pauseCount,
	}
}
