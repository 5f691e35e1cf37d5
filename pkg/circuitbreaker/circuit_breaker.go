// Package circuitbreaker wraps an output's Send so repeated failures stop
// further attempts for a cooldown period instead of retrying into a
// downstream outage on every batch.
package circuitbreaker

import (
	"sync"
	"time"

	"ssw-logs-capture/pkg/pipeerr"
)

// State is one of the three circuit breaker states.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config tunes when a breaker trips and how long it stays open.
type Config struct {
	MaxFailures  int64         `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

func (c Config) withDefaults() Config {
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	return c
}

// Breaker guards one output's Send calls.
type Breaker struct {
	name   string
	config Config

	mu            sync.RWMutex
	state         State
	failures      int64
	successes     int64
	requests      int64
	lastFailure   time.Time
	lastSuccess   time.Time
	nextRetryTime time.Time
}

// New constructs a closed Breaker for the named output.
func New(name string, config Config) *Breaker {
	return &Breaker{name: name, config: config.withDefaults(), state: StateClosed}
}

// Execute runs fn through the breaker. If the breaker is open and the
// cooldown hasn't elapsed, fn is not called and a Resource-class error is
// returned immediately — this is the circuit breaker's reaction to
// repeated output failure, short of stopping the pipeline outright.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests++

	if b.state == StateOpen {
		if time.Now().Before(b.nextRetryTime) {
			return pipeerr.New(pipeerr.KindResource, pipeerr.CodeQueueOverflow, "circuitbreaker",
				b.name+" circuit is open")
		}
		b.state = StateHalfOpen
	}

	err := fn()
	if err != nil {
		b.failures++
		b.lastFailure = time.Now()
		if b.failures >= b.config.MaxFailures {
			b.state = StateOpen
			b.nextRetryTime = time.Now().Add(b.config.ResetTimeout)
		}
		return err
	}

	b.successes++
	b.lastSuccess = time.Now()
	if b.state == StateHalfOpen {
		b.state = StateClosed
		b.failures = 0
	}
	return nil
}

// State reports the breaker's current state.
func (b *Breaker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Reset forces the breaker closed, discarding its failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.nextRetryTime = time.Time{}
}

// Stats is a snapshot for metrics export.
type Stats struct {
	State       State
	Failures    int64
	Successes   int64
	Requests    int64
	LastFailure time.Time
	LastSuccess time.Time
}

// Stats reports a snapshot of the breaker's counters.
func (b *Breaker) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		State:       b.state,
		Failures:    b.failures,
		Successes:   b.successes,
		Requests:    b.requests,
		LastFailure: b.lastFailure,
		LastSuccess: b.lastSuccess,
	}
}
