package record

// Timestamp is a (seconds, nanoseconds) pair. Nanoseconds is always within
// [0, 1e9) for a value produced by this package; the codec is responsible
// for rejecting out-of-range wire values before one is ever constructed.
type Timestamp struct {
	Sec  uint32
	Nsec uint32
}

const nanosPerSecond = 1_000_000_000

// Valid reports whether Nsec is within range.
func (t Timestamp) Valid() bool {
	return t.Nsec < nanosPerSecond
}

// Record is the (Timestamp, Metadata, Body) triple the spec defines as the
// unit the codec decodes and the chain dispatches.
type Record struct {
	Timestamp Timestamp
	Metadata  *Map
	Body      *Map
}

// Clone deep-copies a Record so it can outlive a zero-copy decode buffer.
func (r Record) Clone() Record {
	return Record{
		Timestamp: r.Timestamp,
		Metadata:  r.Metadata.Clone(),
		Body:      r.Body.Clone(),
	}
}

// Equal reports deep equality of timestamp, metadata and body.
func (r Record) Equal(other Record) bool {
	return r.Timestamp == other.Timestamp && r.Metadata.Equal(other.Metadata) && r.Body.Equal(other.Body)
}

// EventType selects which filters a batch is routed through.
type EventType uint8

const (
	EventLogs EventType = iota
	EventMetrics
	EventTraces
)

func (e EventType) String() string {
	switch e {
	case EventLogs:
		return "LOGS"
	case EventMetrics:
		return "METRICS"
	case EventTraces:
		return "TRACES"
	default:
		return "UNKNOWN"
	}
}

// ParseEventType parses the YAML/config spelling of an event type.
func ParseEventType(s string) (EventType, bool) {
	switch s {
	case "LOGS", "logs", "":
		return EventLogs, true
	case "METRICS", "metrics":
		return EventMetrics, true
	case "TRACES", "traces":
		return EventTraces, true
	default:
		return 0, false
	}
}
