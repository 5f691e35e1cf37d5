package codec

import (
	"ssw-logs-capture/pkg/pipeerr"
	"ssw-logs-capture/pkg/record"
)

// Field selects which part of the in-progress record an Append call
// targets.
type Field uint8

const (
	FieldTimestamp Field = iota
	FieldMetadata
	FieldBody
	FieldRoot
)

type recordState struct {
	hasTS   bool
	ts      record.Timestamp
	metaCnt int
	metaBuf []byte
	bodyCnt int
	bodyBuf []byte
	rawBody []byte // set by AppendRaw(FieldRoot, ...), replaces bodyBuf entirely
}

// Encoder incrementally builds a batch of wire-format records. The output
// buffer is owned exclusively by the record currently being built, per the
// concurrency model's "shared resources" rule — an Encoder must not be used
// from more than one goroutine at a time.
type Encoder struct {
	mode TimestampMode
	buf  []byte
	cur  *recordState
}

// NewEncoder returns an Encoder that writes timestamps in mode.
func NewEncoder(mode TimestampMode) *Encoder {
	return &Encoder{mode: mode}
}

// BeginRecord starts a new record. Any record started but never committed
// is discarded when BeginRecord or Reset is called again.
func (e *Encoder) BeginRecord() {
	e.cur = &recordState{}
}

func errInvalidState(msg string) error {
	return pipeerr.New(pipeerr.KindEncode, pipeerr.CodeEncoderInvalidState, "codec", msg)
}

func errOverflow(msg string) error {
	return pipeerr.New(pipeerr.KindEncode, pipeerr.CodeEncoderOverflow, "codec", msg)
}

// AppendTimestamp sets the current record's timestamp. It must be called
// before CommitRecord.
func (e *Encoder) AppendTimestamp(ts record.Timestamp) error {
	if e.cur == nil {
		return errInvalidState("append_timestamp with no open record")
	}
	e.cur.ts = ts
	e.cur.hasTS = true
	return nil
}

// Append adds a key/value pair to FieldMetadata or FieldBody of the
// currently open record.
func (e *Encoder) Append(field Field, key string, v record.Value) error {
	if e.cur == nil {
		return errInvalidState("append with no open record")
	}
	if uint64(len(key)) > maxUint32 {
		return errOverflow("key length exceeds 2^32-1")
	}
	switch field {
	case FieldMetadata:
		e.cur.metaBuf = appendString(e.cur.metaBuf, key)
		e.cur.metaBuf = appendValue(e.cur.metaBuf, v)
		e.cur.metaCnt++
	case FieldBody:
		if e.cur.rawBody != nil {
			return errInvalidState("body already set via AppendRaw")
		}
		e.cur.bodyBuf = appendString(e.cur.bodyBuf, key)
		e.cur.bodyBuf = appendValue(e.cur.bodyBuf, v)
		e.cur.bodyCnt++
	default:
		return errInvalidState("append target must be metadata or body")
	}
	if uint64(len(e.cur.metaBuf)) > maxUint32 || uint64(len(e.cur.bodyBuf)) > maxUint32 {
		return errOverflow("map payload exceeds 2^32-1 bytes")
	}
	return nil
}

// AppendRaw installs pre-encoded wire bytes directly as the record's body,
// bypassing the Value model entirely. This is the escape hatch the spec
// allows ("value is any Value variant or a raw pre-encoded byte slice") —
// used by filters that forward an already-encoded map unchanged.
func (e *Encoder) AppendRaw(field Field, raw []byte) error {
	if e.cur == nil {
		return errInvalidState("append_raw with no open record")
	}
	if field != FieldBody {
		return errInvalidState("append_raw is only supported for the body field")
	}
	if e.cur.bodyCnt > 0 {
		return errInvalidState("body already has appended fields")
	}
	e.cur.rawBody = raw
	return nil
}

// CommitRecord finalizes the current record's headers and appends it to
// the outgoing buffer.
func (e *Encoder) CommitRecord() error {
	if e.cur == nil {
		return errInvalidState("commit with no open record")
	}
	cur := e.cur
	if !cur.hasTS {
		return errInvalidState("record has no timestamp")
	}

	tsBytes := encodeTimestampField(nil, e.mode, cur.ts)

	var root0 []byte
	if cur.metaCnt > 0 {
		root0 = appendArrayHeader(root0, 2)
		root0 = append(root0, tsBytes...)
		root0 = appendMapHeader(root0, cur.metaCnt)
		root0 = append(root0, cur.metaBuf...)
	} else {
		root0 = tsBytes
	}

	var body []byte
	if cur.rawBody != nil {
		body = cur.rawBody
	} else {
		body = appendMapHeader(nil, cur.bodyCnt)
		body = append(body, cur.bodyBuf...)
	}

	rec := appendArrayHeader(nil, 2)
	rec = append(rec, root0...)
	rec = append(rec, body...)

	e.buf = append(e.buf, rec...)
	e.cur = nil
	return nil
}

// Reset discards the output buffer and any in-progress record.
func (e *Encoder) Reset() {
	e.buf = nil
	e.cur = nil
}

// TakeBuffer returns the accumulated batch bytes and resets the encoder's
// internal buffer, transferring ownership to the caller.
func (e *Encoder) TakeBuffer() []byte {
	b := e.buf
	e.buf = nil
	return b
}

// Len reports the number of bytes committed so far.
func (e *Encoder) Len() int { return len(e.buf) }

func appendValue(buf []byte, v record.Value) []byte {
	switch v.Kind {
	case record.KindNull:
		return appendNil(buf)
	case record.KindBool:
		b, _ := v.AsBool()
		return appendBool(buf, b)
	case record.KindInt:
		i, _ := v.AsInt()
		return appendIntCompact(buf, i)
	case record.KindUint:
		u, _ := v.AsUint()
		return appendUintCompact(buf, u)
	case record.KindDouble:
		d, _ := v.AsDouble()
		return appendDouble(buf, d)
	case record.KindString:
		s, _ := v.AsString()
		return appendString(buf, s)
	case record.KindBinary:
		bin, _ := v.AsBinary()
		return appendBinary(buf, bin)
	case record.KindExt:
		ext, _ := v.AsExt()
		return appendExt(buf, int8(ext.Type), ext.Data)
	case record.KindArray:
		arr, _ := v.AsArray()
		buf = appendArrayHeader(buf, len(arr))
		for _, e := range arr {
			buf = appendValue(buf, e)
		}
		return buf
	case record.KindMap:
		m, _ := v.AsMap()
		buf = appendMapHeader(buf, m.Len())
		m.Range(func(k string, val record.Value) bool {
			buf = appendString(buf, k)
			buf = appendValue(buf, val)
			return true
		})
		return buf
	default:
		return appendNil(buf)
	}
}

// --- typed shortcuts -------------------------------------------------
//
// Every shortcut below is a pure convenience over Append; none carries
// logic of its own.

func (e *Encoder) AppendInt8(field Field, key string, v int8) error {
	return e.Append(field, key, record.Int(int64(v)))
}
func (e *Encoder) AppendInt16(field Field, key string, v int16) error {
	return e.Append(field, key, record.Int(int64(v)))
}
func (e *Encoder) AppendInt32(field Field, key string, v int32) error {
	return e.Append(field, key, record.Int(int64(v)))
}
func (e *Encoder) AppendInt64(field Field, key string, v int64) error {
	return e.Append(field, key, record.Int(v))
}
func (e *Encoder) AppendUint8(field Field, key string, v uint8) error {
	return e.Append(field, key, record.Uint(uint64(v)))
}
func (e *Encoder) AppendUint16(field Field, key string, v uint16) error {
	return e.Append(field, key, record.Uint(uint64(v)))
}
func (e *Encoder) AppendUint32(field Field, key string, v uint32) error {
	return e.Append(field, key, record.Uint(uint64(v)))
}
func (e *Encoder) AppendUint64(field Field, key string, v uint64) error {
	return e.Append(field, key, record.Uint(v))
}
func (e *Encoder) AppendDouble(field Field, key string, v float64) error {
	return e.Append(field, key, record.Double(v))
}
func (e *Encoder) AppendBoolean(field Field, key string, v bool) error {
	return e.Append(field, key, record.Bool(v))
}
func (e *Encoder) AppendString(field Field, key string, v string) error {
	return e.Append(field, key, record.String(v))
}
func (e *Encoder) AppendBinary(field Field, key string, v []byte) error {
	return e.Append(field, key, record.Binary(v))
}
func (e *Encoder) AppendExt(field Field, key string, typ int8, data []byte) error {
	return e.Append(field, key, record.ExtValue(byte(typ), data))
}
func (e *Encoder) AppendNull(field Field, key string) error {
	return e.Append(field, key, record.Null())
}
