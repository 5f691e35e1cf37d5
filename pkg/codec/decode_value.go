package codec

import (
	"math"

	"ssw-logs-capture/pkg/record"
)

// decodeValue decodes exactly one msgpack value at the reader's current
// position, recursing into maps and arrays. In zero-copy mode, decoded
// strings and binaries borrow r.buf directly; otherwise they are copied
// into freshly allocated memory so the Value can outlive the input buffer.
func decodeValue(r *reader, zeroCopy bool) (record.Value, error) {
	tag, err := r.readByte()
	if err != nil {
		return record.Value{}, err
	}

	switch {
	case tag <= posFixintMax:
		return record.Int(int64(tag)), nil
	case tag >= negFixintMin:
		return record.Int(int64(int8(tag))), nil
	case tag >= fixMapMin && tag <= fixMapMax:
		return decodeMapBody(r, int(tag&0x0f), zeroCopy)
	case tag >= fixArrayMin && tag <= fixArrayMax:
		return decodeArrayBody(r, int(tag&0x0f), zeroCopy)
	case tag >= fixStrMin && tag <= fixStrMax:
		return decodeStringBody(r, int(tag&0x1f), zeroCopy)
	}

	switch tag {
	case tagNil:
		return record.Null(), nil
	case tagFalse:
		return record.Bool(false), nil
	case tagTrue:
		return record.Bool(true), nil
	case tagBin8:
		n, err := r.readUint8()
		if err != nil {
			return record.Value{}, err
		}
		return decodeBinaryBody(r, int(n), zeroCopy)
	case tagBin16:
		n, err := r.readUint16()
		if err != nil {
			return record.Value{}, err
		}
		return decodeBinaryBody(r, int(n), zeroCopy)
	case tagBin32:
		n, err := r.readUint32()
		if err != nil {
			return record.Value{}, err
		}
		return decodeBinaryBody(r, int(n), zeroCopy)
	case tagExt8:
		n, err := r.readUint8()
		if err != nil {
			return record.Value{}, err
		}
		return decodeExtBody(r, int(n), zeroCopy)
	case tagExt16:
		n, err := r.readUint16()
		if err != nil {
			return record.Value{}, err
		}
		return decodeExtBody(r, int(n), zeroCopy)
	case tagExt32:
		n, err := r.readUint32()
		if err != nil {
			return record.Value{}, err
		}
		return decodeExtBody(r, int(n), zeroCopy)
	case tagFloat32:
		b, err := r.readUint32()
		if err != nil {
			return record.Value{}, err
		}
		return record.Double(float64(math.Float32frombits(b))), nil
	case tagFloat64:
		b, err := r.readUint64()
		if err != nil {
			return record.Value{}, err
		}
		return record.Double(math.Float64frombits(b)), nil
	case tagUint8:
		n, err := r.readUint8()
		if err != nil {
			return record.Value{}, err
		}
		return record.Uint(uint64(n)), nil
	case tagUint16:
		n, err := r.readUint16()
		if err != nil {
			return record.Value{}, err
		}
		return record.Uint(uint64(n)), nil
	case tagUint32:
		n, err := r.readUint32()
		if err != nil {
			return record.Value{}, err
		}
		return record.Uint(uint64(n)), nil
	case tagUint64:
		n, err := r.readUint64()
		if err != nil {
			return record.Value{}, err
		}
		return record.Uint(n), nil
	case tagInt8:
		n, err := r.readUint8()
		if err != nil {
			return record.Value{}, err
		}
		return record.Int(int64(int8(n))), nil
	case tagInt16:
		n, err := r.readUint16()
		if err != nil {
			return record.Value{}, err
		}
		return record.Int(int64(int16(n))), nil
	case tagInt32:
		n, err := r.readUint32()
		if err != nil {
			return record.Value{}, err
		}
		return record.Int(int64(int32(n))), nil
	case tagInt64:
		n, err := r.readUint64()
		if err != nil {
			return record.Value{}, err
		}
		return record.Int(int64(n)), nil
	case tagFixExt1:
		return decodeExtBody(r, 1, zeroCopy)
	case tagFixExt2:
		return decodeExtBody(r, 2, zeroCopy)
	case tagFixExt4:
		return decodeExtBody(r, 4, zeroCopy)
	case tagFixExt8:
		return decodeExtBody(r, 8, zeroCopy)
	case tagFixExt16:
		return decodeExtBody(r, 16, zeroCopy)
	case tagStr8:
		n, err := r.readUint8()
		if err != nil {
			return record.Value{}, err
		}
		return decodeStringBody(r, int(n), zeroCopy)
	case tagStr16:
		n, err := r.readUint16()
		if err != nil {
			return record.Value{}, err
		}
		return decodeStringBody(r, int(n), zeroCopy)
	case tagStr32:
		n, err := r.readUint32()
		if err != nil {
			return record.Value{}, err
		}
		return decodeStringBody(r, int(n), zeroCopy)
	case tagArray16:
		n, err := r.readUint16()
		if err != nil {
			return record.Value{}, err
		}
		return decodeArrayBody(r, int(n), zeroCopy)
	case tagArray32:
		n, err := r.readUint32()
		if err != nil {
			return record.Value{}, err
		}
		return decodeArrayBody(r, int(n), zeroCopy)
	case tagMap16:
		n, err := r.readUint16()
		if err != nil {
			return record.Value{}, err
		}
		return decodeMapBody(r, int(n), zeroCopy)
	case tagMap32:
		n, err := r.readUint32()
		if err != nil {
			return record.Value{}, err
		}
		return decodeMapBody(r, int(n), zeroCopy)
	default:
		return record.Value{}, errMalformed
	}
}

func decodeStringBody(r *reader, n int, zeroCopy bool) (record.Value, error) {
	b, err := r.take(n)
	if err != nil {
		return record.Value{}, err
	}
	if zeroCopy {
		return record.String(bytesToString(b)), nil
	}
	owned := make([]byte, n)
	copy(owned, b)
	return record.String(string(owned)), nil
}

func decodeBinaryBody(r *reader, n int, zeroCopy bool) (record.Value, error) {
	b, err := r.take(n)
	if err != nil {
		return record.Value{}, err
	}
	if zeroCopy {
		return record.Binary(b), nil
	}
	owned := make([]byte, n)
	copy(owned, b)
	return record.Binary(owned), nil
}

func decodeExtBody(r *reader, n int, zeroCopy bool) (record.Value, error) {
	typ, err := r.readByte()
	if err != nil {
		return record.Value{}, err
	}
	data, err := r.take(n)
	if err != nil {
		return record.Value{}, err
	}
	if !zeroCopy {
		owned := make([]byte, n)
		copy(owned, data)
		data = owned
	}
	return record.ExtValue(typ, data), nil
}

func decodeArrayBody(r *reader, n int, zeroCopy bool) (record.Value, error) {
	// Every element needs at least one byte; reject up front so a
	// corrupt or adversarial length header can't force a huge
	// allocation before the bounds check on the individual reads below
	// ever runs.
	if n > r.remaining() {
		return record.Value{}, errNeedMoreData
	}
	arr := make([]record.Value, n)
	for i := 0; i < n; i++ {
		v, err := decodeValue(r, zeroCopy)
		if err != nil {
			return record.Value{}, err
		}
		arr[i] = v
	}
	return record.Array(arr), nil
}

func decodeMapBody(r *reader, n int, zeroCopy bool) (record.Value, error) {
	// Each entry is a key plus a value, so it needs at least two bytes.
	if n > r.remaining()/2 {
		return record.Value{}, errNeedMoreData
	}
	m := record.NewMap()
	for i := 0; i < n; i++ {
		k, err := decodeValue(r, zeroCopy)
		if err != nil {
			return record.Value{}, err
		}
		key, ok := k.AsString()
		if !ok {
			return record.Value{}, errMalformed
		}
		v, err := decodeValue(r, zeroCopy)
		if err != nil {
			return record.Value{}, err
		}
		m.Set(key, v)
	}
	return record.MapValue(m), nil
}
