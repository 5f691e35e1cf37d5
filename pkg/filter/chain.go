package filter

import (
	"context"
	"sync"
	"time"

	"ssw-logs-capture/pkg/record"
	"ssw-logs-capture/pkg/tagmatch"

	"github.com/sirupsen/logrus"
)

// entry is one filter's registration: its plugin, routing predicate, and
// lifecycle state. Entries are immutable after Register; State is the only
// field that mutates after registration, guarded by Chain.mu.
type entry struct {
	name       string
	plugin     Plugin
	match      tagmatch.CompiledPattern
	eventTypes map[record.EventType]bool
	state      State
}

func (e *entry) matches(tag string, eventType record.EventType) bool {
	return e.eventTypes[eventType] && e.match.Match(tag)
}

// Chain routes batches through its registered filters in registration order,
// isolating per-batch failures so one filter's error never disables the
// chain or the filters around it.
type Chain struct {
	mu       sync.RWMutex
	entries  []*entry
	logger   *logrus.Logger
	onFilter func(name string, d time.Duration)
}

// SetDurationObserver registers a callback invoked after every FilterBatch
// call with the filter's name and how long it took, for metrics export. A
// nil observer (the default) means no callback is made.
func (c *Chain) SetDurationObserver(fn func(name string, d time.Duration)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFilter = fn
}

// NewChain constructs an empty chain. A nil logger falls back to logrus's
// standard logger, matching the rest of the core's logging convention.
func NewChain(logger *logrus.Logger) *Chain {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Chain{logger: logger}
}

// Register validates config against plugin's schema, calls Init, and — on
// success — appends the filter to the chain in CONFIGURED state. A
// configuration error is returned to the caller and the filter is not
// added; the chain keeps no entry for it, so no INVALID state is recorded.
func (c *Chain) Register(name string, plugin Plugin, matchPattern string, eventTypes []record.EventType, config RawConfig) error {
	schema := plugin.Schema()
	if err := validateConfig(schema, config); err != nil {
		c.logger.WithFields(logrus.Fields{
			"filter": name,
			"error":  err,
		}).Error("Filter configuration rejected")
		return err
	}
	if err := plugin.Init(config); err != nil {
		c.logger.WithFields(logrus.Fields{
			"filter": name,
			"error":  err,
		}).Error("Filter initialization failed")
		return err
	}

	types := make(map[record.EventType]bool, len(eventTypes))
	for _, et := range eventTypes {
		types[et] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, &entry{
		name:       name,
		plugin:     plugin,
		match:      tagmatch.Compile(matchPattern),
		eventTypes: types,
		state:      StateConfigured,
	})
	c.logger.WithFields(logrus.Fields{
		"filter":  name,
		"pattern": matchPattern,
	}).Info("Filter registered")
	return nil
}

// ValidateEventTypes rejects the chain if any registered filter's
// event-type set does not intersect the inputs actually registered on the
// pipeline — a filter that can never fire on any input is a configuration
// mistake, not a silent no-op.
func (c *Chain) ValidateEventTypes(registeredInputs map[record.EventType]bool) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		intersects := false
		for et := range e.eventTypes {
			if registeredInputs[et] {
				intersects = true
				break
			}
		}
		if !intersects {
			return configError("chain", "filter "+e.name+" has no event type in common with any registered input")
		}
	}
	return nil
}

// Start transitions every CONFIGURED filter to RUNNING and returns nil: a
// filter with an invalid configuration was already rejected and reported
// at Register time and never joined the chain.
func (c *Chain) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.state == StateConfigured {
			e.state = StateRunning
		}
	}
	return nil
}

// Stop calls Exit on every RUNNING filter and transitions it to STOPPED.
// Exit errors are logged but do not stop the chain from proceeding through
// the remaining filters.
func (c *Chain) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.state != StateRunning {
			continue
		}
		if err := e.plugin.Exit(); err != nil {
			c.logger.WithFields(logrus.Fields{
				"filter": e.name,
				"error":  err,
			}).Warn("Filter exit returned an error")
		}
		e.state = StateStopped
	}
}

// Dispatch runs one batch through every RUNNING filter whose tag pattern
// and event type match, in registration order. It returns the resulting
// buffer, whether the batch was dropped, and the first fatal error
// encountered. A fatal filter error and an explicit Drop verdict have the
// same effect on the batch: the chain stops processing it and moves on.
// Neither ever disables the offending filter for subsequent batches.
func (c *Chain) Dispatch(ctx context.Context, tag string, eventType record.EventType, data []byte) ([]byte, bool, error) {
	c.mu.RLock()
	entries := c.entries
	onFilter := c.onFilter
	c.mu.RUnlock()

	buf := data
	for _, e := range entries {
		if e.state != StateRunning || !e.matches(tag, eventType) {
			continue
		}

		start := time.Now()
		result, err := e.plugin.FilterBatch(ctx, tag, eventType, buf)
		if onFilter != nil {
			onFilter(e.name, time.Since(start))
		}
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"filter": e.name,
				"tag":    tag,
				"error":  err,
			}).Error("Filter returned an error; dropping batch")
			return nil, true, err
		}

		switch result.Verdict {
		case Drop:
			return nil, true, nil
		case Modified:
			buf = result.Buffer
		case Notouch:
			// buf unchanged
		}
	}
	return buf, false, nil
}

// Len reports the number of registered filters, regardless of state.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
