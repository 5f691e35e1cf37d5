package codec

import (
	"encoding/binary"

	"ssw-logs-capture/pkg/pipeerr"
)

var (
	errNeedMoreData = pipeerr.New(pipeerr.KindDecode, pipeerr.CodeNeedMoreData, "codec", "need more data")
	errMalformed    = pipeerr.New(pipeerr.KindDecode, pipeerr.CodeMalformed, "codec", "malformed record")
)

// reader is a bounds-checked cursor over a decode buffer. Every read
// returns errNeedMoreData rather than panicking when the buffer is
// truncated, so Decoder.Next can tell "wait for more bytes" apart from
// "this is corrupt".
type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) peekByte() (byte, error) {
	if r.remaining() < 1 {
		return 0, errNeedMoreData
	}
	return r.buf[r.pos], nil
}

func (r *reader) readByte() (byte, error) {
	b, err := r.peekByte()
	if err != nil {
		return 0, err
	}
	r.pos++
	return b, nil
}

// take returns a borrowed subslice of n bytes and advances the cursor.
func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, errNeedMoreData
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) readUint8() (uint8, error) {
	b, err := r.readByte()
	return b, err
}

func (r *reader) readUint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) readUint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) readUint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}
