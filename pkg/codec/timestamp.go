package codec

import (
	"encoding/binary"

	"ssw-logs-capture/pkg/record"
)

// TimestampMode selects the on-wire timestamp representation an Encoder
// writes. A Decoder recognizes all five regardless of how it was
// constructed, per the spec's forward-compatibility requirement.
type TimestampMode uint8

const (
	TimestampNative TimestampMode = iota
	TimestampLegacy
	TimestampForwardV1
	TimestampFluentV1
	TimestampFluentV2
)

func encodeTimestampExt(sec, nsec uint32) []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, uint64(sec)<<32|uint64(nsec))
	return data
}

// encodeTimestampField writes ts in the encoder's configured mode. This is
// always the value that becomes root[0] (or root[0].arr[0] in the
// metadata-bearing v2 form) — the first field of the record, per the
// codec's invariant.
func encodeTimestampField(buf []byte, mode TimestampMode, ts record.Timestamp) []byte {
	switch mode {
	case TimestampLegacy:
		seconds := float64(ts.Sec) + float64(ts.Nsec)/1e9
		return appendDouble(buf, seconds)
	case TimestampForwardV1:
		ext := encodeTimestampExt(ts.Sec, ts.Nsec)
		buf = appendArrayHeader(buf, 2)
		buf = appendExt(buf, timestampExtType, ext)
		return appendNil(buf)
	case TimestampFluentV1:
		buf = appendArrayHeader(buf, 2)
		buf = appendUintCompact(buf, uint64(ts.Sec))
		return appendUintCompact(buf, uint64(ts.Nsec))
	case TimestampNative, TimestampFluentV2:
		fallthrough
	default:
		return appendExt(buf, timestampExtType, encodeTimestampExt(ts.Sec, ts.Nsec))
	}
}

// valueToTimestamp interprets a generically-decoded Value as one of the
// four underlying timestamp shapes (native/fluent-v2 ext, legacy float64,
// forward-v1 [ext, filler] array, or fluent-v1 [sec, nsec] array). It does
// not see the v2 metadata-pairing wrapper — the caller peels that off
// first, since a v2 pair and a bare forward-v1/fluent-v1 array share the
// same "2-element array" shape and are told apart only by whether the
// second element is a map.
func valueToTimestamp(v record.Value) (record.Timestamp, bool) {
	switch v.Kind {
	case record.KindExt:
		ext, _ := v.AsExt()
		if ext.Type != byte(timestampExtType) || len(ext.Data) != 8 {
			return record.Timestamp{}, false
		}
		n := binary.BigEndian.Uint64(ext.Data)
		return record.Timestamp{Sec: uint32(n >> 32), Nsec: uint32(n)}, true
	case record.KindDouble:
		d, _ := v.AsDouble()
		sec := uint32(d)
		nsec := uint32((d - float64(sec)) * 1e9)
		return record.Timestamp{Sec: sec, Nsec: nsec}, true
	case record.KindArray:
		arr, _ := v.AsArray()
		if len(arr) != 2 {
			return record.Timestamp{}, false
		}
		if arr[0].Kind == record.KindExt {
			return valueToTimestamp(arr[0])
		}
		sec, secOK := asUint(arr[0])
		nsec, nsecOK := asUint(arr[1])
		if !secOK || !nsecOK {
			return record.Timestamp{}, false
		}
		return record.Timestamp{Sec: uint32(sec), Nsec: uint32(nsec)}, true
	default:
		return record.Timestamp{}, false
	}
}

func asUint(v record.Value) (uint64, bool) {
	if u, ok := v.AsUint(); ok {
		return u, true
	}
	if i, ok := v.AsInt(); ok && i >= 0 {
		return uint64(i), true
	}
	return 0, false
}

// splitTimeField decides whether root0 is the bare timestamp or the v2
// [timestamp, metadata] pair, per the wire format's forward-compatible
// disambiguation rule: a 2-element array whose second element is a map is
// the v2 pair; anything else is interpreted directly as a timestamp shape.
func splitTimeField(root0 record.Value) (ts record.Timestamp, metadata *record.Map, ok bool) {
	if root0.Kind == record.KindArray {
		arr, _ := root0.AsArray()
		if len(arr) == 2 {
			if m, isMap := arr[1].AsMap(); isMap {
				ts, ok = valueToTimestamp(arr[0])
				return ts, m, ok
			}
		}
	}
	ts, ok = valueToTimestamp(root0)
	return ts, nil, ok
}
