package codec

import (
	"strconv"

	"ssw-logs-capture/pkg/pipeerr"
	"ssw-logs-capture/pkg/record"
)

// Status reports the outcome of a single Decoder.Next call.
type Status uint8

const (
	// StatusOK means Next produced a Record.
	StatusOK Status = iota
	// StatusNeedMoreData means the buffer was truncated mid-record; the
	// caller should append more bytes at the same Offset and call Next
	// again.
	StatusNeedMoreData
	// StatusEnd means every byte in the buffer has been consumed.
	StatusEnd
	// StatusMalformedSkipped means the record at the previous offset was
	// corrupt, a resync point was found within the 1 KiB window, and the
	// decoder has recovered; the caller should log the error and keep
	// calling Next.
	StatusMalformedSkipped
	// StatusAbandoned means a malformed record was found and no resync
	// point exists within the window; the stream is abandoned and every
	// subsequent Next call returns StatusAbandoned.
	StatusAbandoned
)

// resyncWindow is the number of bytes searched for a resync anchor after a
// malformed record, per the error policy.
const resyncWindow = 1024

// Decoder is a restartable streaming iterator over a batch buffer. It never
// copies payload bytes when constructed in zero-copy mode; the caller's
// buffer must then outlive every Record it yields.
type Decoder struct {
	buf       []byte
	offset    int
	zeroCopy  bool
	abandoned bool
}

// NewDecoder constructs a Decoder over buf starting at offset 0.
func NewDecoder(buf []byte, zeroCopy bool) *Decoder {
	return &Decoder{buf: buf, zeroCopy: zeroCopy}
}

// Offset reports the decoder's current position in buf.
func (d *Decoder) Offset() int { return d.offset }

// Next decodes the record at the current offset. See Status for the
// possible outcomes.
func (d *Decoder) Next() (record.Record, Status, error) {
	if d.abandoned {
		return record.Record{}, StatusAbandoned, nil
	}
	if d.offset >= len(d.buf) {
		return record.Record{}, StatusEnd, nil
	}

	start := d.offset
	r := &reader{buf: d.buf, pos: start}
	rec, err := decodeRecord(r, d.zeroCopy)
	if err == nil {
		d.offset = r.pos
		return rec, StatusOK, nil
	}

	if err == errNeedMoreData {
		d.offset = start
		return record.Record{}, StatusNeedMoreData, nil
	}

	// Malformed: attempt resync within the window.
	resyncAt, found := findResync(d.buf, start+1, resyncWindow)
	if !found {
		d.abandoned = true
		return record.Record{}, StatusAbandoned, wrapMalformed(start, err)
	}
	d.offset = resyncAt
	return record.Record{}, StatusMalformedSkipped, wrapMalformed(start, err)
}

// decodeRecord decodes one (timestamp, metadata, body) record per the wire
// format: a 2-element (or longer, forward-compatibly tolerated) array whose
// first element is either a bare timestamp or a [timestamp, metadata] v2
// pair, and whose second element is the body map.
func decodeRecord(r *reader, zeroCopy bool) (record.Record, error) {
	root, err := decodeValue(r, zeroCopy)
	if err != nil {
		return record.Record{}, err
	}
	arr, ok := root.AsArray()
	if !ok || len(arr) < 2 {
		return record.Record{}, errMalformed
	}

	ts, metadata, ok := splitTimeField(arr[0])
	if !ok {
		return record.Record{}, errMalformed
	}
	if !ts.Valid() {
		return record.Record{}, pipeerr.New(pipeerr.KindDecode, pipeerr.CodeTimestampRange, "codec",
			"nanoseconds out of range")
	}

	body, ok := arr[1].AsMap()
	if !ok {
		return record.Record{}, errMalformed
	}
	if metadata == nil {
		metadata = record.NewMap()
	}

	return record.Record{Timestamp: ts, Metadata: metadata, Body: body}, nil
}

// findResync scans buf[from:from+window] for a map-start tag (fixmap,
// map16, or map32), per the error policy's resync heuristic.
func findResync(buf []byte, from, window int) (int, bool) {
	end := from + window
	if end > len(buf) {
		end = len(buf)
	}
	for i := from; i < end; i++ {
		b := buf[i]
		if (b >= fixMapMin && b <= fixMapMax) || b == tagMap16 || b == tagMap32 {
			return i, true
		}
	}
	return 0, false
}

func wrapMalformed(offset int, cause error) error {
	e := pipeerr.Wrap(pipeerr.KindDecode, pipeerr.CodeMalformed, "codec", "malformed record", cause)
	// Metadata beyond the sentinel-comparable Code lives on Message for
	// now; a structured offset field would require widening pipeerr.Error
	// for a detail this single package needs.
	e.Message = e.Message + ": offset " + strconv.Itoa(offset)
	return e
}
