// Package codec implements the streaming, self-describing binary record
// format every pipeline stage speaks on the wire: a length-prefixed,
// type-tagged, msgpack-compatible encoding with five interchangeable
// timestamp representations. See Encoder and Decoder.
package codec

import (
	"encoding/binary"
	"math"
)

// msgpack type tags used by both the encoder and the decoder. Only the
// subset this codec actually emits/recognizes is named; decode additionally
// accepts forms such as float32 that it may receive from other encoders
// even though this encoder never writes them.
const (
	tagNil        byte = 0xc0
	tagFalse      byte = 0xc2
	tagTrue       byte = 0xc3
	tagBin8       byte = 0xc4
	tagBin16      byte = 0xc5
	tagBin32      byte = 0xc6
	tagExt8       byte = 0xc7
	tagExt16      byte = 0xc8
	tagExt32      byte = 0xc9
	tagFloat32    byte = 0xca
	tagFloat64    byte = 0xcb
	tagUint8      byte = 0xcc
	tagUint16     byte = 0xcd
	tagUint32     byte = 0xce
	tagUint64     byte = 0xcf
	tagInt8       byte = 0xd0
	tagInt16      byte = 0xd1
	tagInt32      byte = 0xd2
	tagInt64      byte = 0xd3
	tagFixExt1    byte = 0xd4
	tagFixExt2    byte = 0xd5
	tagFixExt4    byte = 0xd6
	tagFixExt8    byte = 0xd7
	tagFixExt16   byte = 0xd8
	tagStr8       byte = 0xd9
	tagStr16      byte = 0xda
	tagStr32      byte = 0xdb
	tagArray16    byte = 0xdc
	tagArray32    byte = 0xdd
	tagMap16      byte = 0xde
	tagMap32      byte = 0xdf

	fixMapMin   byte = 0x80
	fixMapMax   byte = 0x8f
	fixArrayMin byte = 0x90
	fixArrayMax byte = 0x9f
	fixStrMin   byte = 0xa0
	fixStrMax   byte = 0xbf

	posFixintMax byte = 0x7f
	negFixintMin byte = 0xe0
)

const maxUint32 = uint64(math.MaxUint32)

// ext type used for the native/forward-v1/fluent-v2 timestamp payload.
const timestampExtType = int8(0)

func appendNil(buf []byte) []byte   { return append(buf, tagNil) }
func appendBool(buf []byte, b bool) []byte {
	if b {
		return append(buf, tagTrue)
	}
	return append(buf, tagFalse)
}

func appendIntCompact(buf []byte, v int64) []byte {
	switch {
	case v >= 0 && v <= int64(posFixintMax):
		return append(buf, byte(v))
	case v < 0 && v >= -32:
		return append(buf, byte(int8(v)))
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return append(buf, tagInt8, byte(int8(v)))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		b := append(buf, tagInt16)
		return binary.BigEndian.AppendUint16(b, uint16(int16(v)))
	case v >= math.MinInt32 && v <= math.MaxInt32:
		b := append(buf, tagInt32)
		return binary.BigEndian.AppendUint32(b, uint32(int32(v)))
	default:
		b := append(buf, tagInt64)
		return binary.BigEndian.AppendUint64(b, uint64(v))
	}
}

func appendUintCompact(buf []byte, v uint64) []byte {
	switch {
	case v <= uint64(posFixintMax):
		return append(buf, byte(v))
	case v <= math.MaxUint8:
		return append(buf, tagUint8, byte(v))
	case v <= math.MaxUint16:
		b := append(buf, tagUint16)
		return binary.BigEndian.AppendUint16(b, uint16(v))
	case v <= math.MaxUint32:
		b := append(buf, tagUint32)
		return binary.BigEndian.AppendUint32(b, uint32(v))
	default:
		b := append(buf, tagUint64)
		return binary.BigEndian.AppendUint64(b, v)
	}
}

func appendDouble(buf []byte, v float64) []byte {
	b := append(buf, tagFloat64)
	return binary.BigEndian.AppendUint64(b, math.Float64bits(v))
}

func appendStringHeader(buf []byte, n int) []byte {
	switch {
	case n <= 31:
		return append(buf, fixStrMin|byte(n))
	case n <= math.MaxUint8:
		return append(buf, tagStr8, byte(n))
	case n <= math.MaxUint16:
		b := append(buf, tagStr16)
		return binary.BigEndian.AppendUint16(b, uint16(n))
	default:
		b := append(buf, tagStr32)
		return binary.BigEndian.AppendUint32(b, uint32(n))
	}
}

func appendString(buf []byte, s string) []byte {
	buf = appendStringHeader(buf, len(s))
	return append(buf, s...)
}

func appendBinaryHeader(buf []byte, n int) []byte {
	switch {
	case n <= math.MaxUint8:
		return append(buf, tagBin8, byte(n))
	case n <= math.MaxUint16:
		b := append(buf, tagBin16)
		return binary.BigEndian.AppendUint16(b, uint16(n))
	default:
		b := append(buf, tagBin32)
		return binary.BigEndian.AppendUint32(b, uint32(n))
	}
}

func appendBinary(buf []byte, v []byte) []byte {
	buf = appendBinaryHeader(buf, len(v))
	return append(buf, v...)
}

func appendExt(buf []byte, typ int8, data []byte) []byte {
	n := len(data)
	switch n {
	case 1:
		buf = append(buf, tagFixExt1)
	case 2:
		buf = append(buf, tagFixExt2)
	case 4:
		buf = append(buf, tagFixExt4)
	case 8:
		buf = append(buf, tagFixExt8)
	case 16:
		buf = append(buf, tagFixExt16)
	default:
		switch {
		case n <= math.MaxUint8:
			buf = append(buf, tagExt8, byte(n))
		case n <= math.MaxUint16:
			buf = append(buf, tagExt16)
			buf = binary.BigEndian.AppendUint16(buf, uint16(n))
		default:
			buf = append(buf, tagExt32)
			buf = binary.BigEndian.AppendUint32(buf, uint32(n))
		}
	}
	buf = append(buf, byte(typ))
	return append(buf, data...)
}

func appendMapHeader(buf []byte, n int) []byte {
	switch {
	case n <= 15:
		return append(buf, fixMapMin|byte(n))
	case n <= math.MaxUint16:
		b := append(buf, tagMap16)
		return binary.BigEndian.AppendUint16(b, uint16(n))
	default:
		b := append(buf, tagMap32)
		return binary.BigEndian.AppendUint32(b, uint32(n))
	}
}

func appendArrayHeader(buf []byte, n int) []byte {
	switch {
	case n <= 15:
		return append(buf, fixArrayMin|byte(n))
	case n <= math.MaxUint16:
		b := append(buf, tagArray16)
		return binary.BigEndian.AppendUint16(b, uint16(n))
	default:
		b := append(buf, tagArray32)
		return binary.BigEndian.AppendUint32(b, uint32(n))
	}
}
