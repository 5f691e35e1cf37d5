// Package stdoutout dumps every record of a batch to an io.Writer, one
// line per record, for local development. It is an output rather than a
// filter — unlike original_source's stdout filter plugin, it never
// returns the batch onward.
package stdoutout

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"ssw-logs-capture/pkg/codec"
	"ssw-logs-capture/pkg/record"
)

// Output writes decoded records to Writer as plain text.
type Output struct {
	mu     sync.Mutex
	writer *bufio.Writer
	seq    uint64
}

// New constructs an Output writing to w.
func New(w io.Writer) *Output {
	return &Output{writer: bufio.NewWriter(w)}
}

// Send decodes data and writes each record as one line, flushing once per
// batch.
func (o *Output) Send(tag string, data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	dec := codec.NewDecoder(data, false)
	for {
		rec, status, err := dec.Next()
		switch status {
		case codec.StatusOK:
			fmt.Fprintf(o.writer, "[%d] %s: [%d.%09d, %s, %s]\n",
				o.seq, tag, rec.Timestamp.Sec, rec.Timestamp.Nsec, formatMap(rec.Metadata), formatMap(rec.Body))
			o.seq++
		case codec.StatusEnd:
			return o.writer.Flush()
		case codec.StatusMalformedSkipped:
			continue
		case codec.StatusAbandoned, codec.StatusNeedMoreData:
			o.writer.Flush()
			return err
		}
	}
}

func formatMap(m *record.Map) string {
	if m == nil || m.Len() == 0 {
		return "{}"
	}
	s := "{"
	first := true
	for _, k := range m.Keys() {
		if !first {
			s += ", "
		}
		first = false
		v, _ := m.Get(k)
		text, ok := v.Stringify()
		if !ok {
			text = fmt.Sprintf("<%s>", v.Kind)
		}
		s += k + "=" + text
	}
	return s + "}"
}
