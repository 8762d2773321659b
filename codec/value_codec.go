package codec

import (
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"

	"deltagraph/value"
)

func math32bits(f float32) uint32  { return math.Float32bits(f) }
func math64bits(f float64) uint64  { return math.Float64bits(f) }
func float32FromBits(b uint32) float32 { return math.Float32frombits(b) }
func float64FromBits(b uint64) float64 { return math.Float64frombits(b) }
func timeFromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }

// tag discriminates a value.Value variant on the wire (§4.8's sample
// allocation, stable across versions).
const (
	tagNull             = 0
	tagInt8             = 1
	tagInt16            = 2
	tagInt32            = 3
	tagInt64            = 4
	tagUint8            = 5
	tagUint16           = 6
	tagUint32           = 7
	tagUint64           = 8
	tagBool             = 9
	tagChar             = 10
	tagFloat32          = 11
	tagFloat64          = 12
	tagDecimal          = 13
	tagGUID             = 14
	tagInlineString     = 15
	tagInternedStringRef = 16
	tagDateTime         = 17
	tagDateTimeOffset   = 18
	tagTimeSpan         = 19
	tagByteBlob         = 20
	tagEnumIdentity     = 21
	tagEnumPrimitive    = 22
	tagObjectArray      = 23
	tagList             = 24
	tagMap              = 25
)

// encodeCtx carries the per-Encode-call interning tables (nil when the
// corresponding table is disabled) and the options governing enum
// identity and string interning.
type encodeCtx struct {
	opts    Options
	strings *stringTable
	types   *typeTable
}

func encodeValue(buf []byte, v value.Value, ctx *encodeCtx) ([]byte, error) {
	switch v.Kind() {
	case value.KindNull:
		return append(buf, tagNull), nil
	case value.KindInt8:
		buf = append(buf, tagInt8)
		return putVarint(buf, v.AsInt64()), nil
	case value.KindInt16:
		buf = append(buf, tagInt16)
		return putVarint(buf, v.AsInt64()), nil
	case value.KindInt32:
		buf = append(buf, tagInt32)
		return putVarint(buf, v.AsInt64()), nil
	case value.KindInt64:
		buf = append(buf, tagInt64)
		return putVarint(buf, v.AsInt64()), nil
	case value.KindUint8:
		buf = append(buf, tagUint8)
		return putUvarint(buf, v.AsUint64()), nil
	case value.KindUint16:
		buf = append(buf, tagUint16)
		return putUvarint(buf, v.AsUint64()), nil
	case value.KindUint32:
		buf = append(buf, tagUint32)
		return putUvarint(buf, v.AsUint64()), nil
	case value.KindUint64:
		buf = append(buf, tagUint64)
		return putUvarint(buf, v.AsUint64()), nil
	case value.KindBool:
		b := byte(0)
		if v.AsBool() {
			b = 1
		}
		return append(buf, tagBool, b), nil
	case value.KindChar:
		buf = append(buf, tagChar)
		return putUvarint(buf, uint64(v.AsInt64())), nil
	case value.KindFloat32:
		buf = append(buf, tagFloat32)
		return putUvarint(buf, uint64(math32bits(v.AsFloat32()))), nil
	case value.KindFloat64:
		buf = append(buf, tagFloat64)
		return putUvarint(buf, math64bits(v.AsFloat64())), nil
	case value.KindDecimal:
		return encodeDecimal(buf, v.AsDecimal()), nil
	case value.KindGUID:
		id := v.AsGUID()
		buf = append(buf, tagGUID)
		return append(buf, id[:]...), nil
	case value.KindString:
		return encodeString(buf, v.AsString(), ctx), nil
	case value.KindDateTime:
		dt := v.AsDateTime()
		buf = append(buf, tagDateTime, byte(dt.Kind))
		return putVarint(buf, dt.Time.UnixNano()), nil
	case value.KindDateTimeOffset:
		dto := v.AsDateTimeOffset()
		buf = append(buf, tagDateTimeOffset)
		buf = putVarint(buf, dto.Time.UnixNano())
		return putVarint(buf, int64(dto.OffsetMinutes)), nil
	case value.KindTimeSpan:
		buf = append(buf, tagTimeSpan)
		return putVarint(buf, v.AsTimeSpan().Ticks), nil
	case value.KindBytes:
		b := v.AsBytes()
		buf = append(buf, tagByteBlob)
		buf = putUvarint(buf, uint64(len(b)))
		return append(buf, b...), nil
	case value.KindObjectArray, value.KindList:
		return encodeSlice(buf, v, ctx)
	case value.KindMap:
		return encodeMap(buf, v, ctx)
	case value.KindEnum:
		return encodeEnum(buf, v, ctx)
	case value.KindNested:
		return nil, ErrNestedValueNotWireRepresentable
	default:
		return nil, ErrUnknownTag
	}
}

func encodeString(buf []byte, s string, ctx *encodeCtx) []byte {
	if ctx != nil && ctx.strings != nil {
		idx := ctx.strings.intern(s)
		buf = append(buf, tagInternedStringRef)
		return putUvarint(buf, uint64(idx))
	}
	buf = append(buf, tagInlineString)
	buf = putUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func encodeDecimal(buf []byte, d value.Decimal) []byte {
	buf = append(buf, tagDecimal, d.Scale)
	sign := byte(0)
	if d.Negative {
		sign = 1
	}
	buf = append(buf, sign)
	mag := d.Magnitude.Bytes()
	buf = putUvarint(buf, uint64(len(mag)))
	return append(buf, mag...)
}

func encodeSlice(buf []byte, v value.Value, ctx *encodeCtx) ([]byte, error) {
	tag := byte(tagList)
	if v.Kind() == value.KindObjectArray {
		tag = tagObjectArray
	}
	buf = append(buf, tag)
	elems := v.AsSlice()
	buf = putUvarint(buf, uint64(len(elems)))
	var err error
	for _, e := range elems {
		buf, err = encodeValue(buf, e, ctx)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func encodeMap(buf []byte, v value.Value, ctx *encodeCtx) ([]byte, error) {
	buf = append(buf, tagMap)
	m := v.AsMap()
	buf = putUvarint(buf, uint64(m.Len()))
	var err error
	m.Each(func(k, val value.Value) {
		if err != nil {
			return
		}
		buf, err = encodeValue(buf, k, ctx)
		if err != nil {
			return
		}
		buf, err = encodeValue(buf, val, ctx)
	})
	return buf, err
}

func encodeEnum(buf []byte, v value.Value, ctx *encodeCtx) ([]byte, error) {
	e := v.AsEnum()
	useIdentity := e.HasType && (ctx == nil || ctx.opts.EnumIdentity)
	if !useIdentity {
		buf = append(buf, tagEnumPrimitive)
		return putVarint(buf, e.Underlying), nil
	}
	buf = append(buf, tagEnumIdentity)
	if ctx != nil && ctx.types != nil {
		idx := ctx.types.intern(e.TypeID)
		buf = putUvarint(buf, uint64(idx))
	} else {
		buf = putUvarint(buf, uint64(len(e.TypeID)))
		buf = append(buf, e.TypeID...)
	}
	return putVarint(buf, e.Underlying), nil
}

// decodeCtx mirrors encodeCtx for the reader side: reconstructed tables
// (nil when absent) plus the safety caps and a running total-ops counter
// shared across the whole decode (§4.8 "maximum total operations across
// all nested levels").
type decodeCtx struct {
	opts       Options
	strings    []string
	types      []string
	totalOps   int
	depth      int
}

func (c *decodeCtx) checkDepth(offset int) error {
	if c.opts.MaxNesting > 0 && c.depth > c.opts.MaxNesting {
		return newErr(KindBoundExceeded, offset, "nesting depth", ErrBoundExceeded)
	}
	return nil
}

func decodeValue(data []byte, offset int, ctx *decodeCtx) (value.Value, int, error) {
	if offset >= len(data) {
		return value.Value{}, 0, newErr(KindTruncated, offset, "value tag", ErrTruncated)
	}
	tag := data[offset]
	pos := offset + 1
	switch tag {
	case tagNull:
		return value.Null(), 1, nil
	case tagInt8, tagInt16, tagInt32, tagInt64:
		n, adv, err := readVarint(data, pos)
		if err != nil {
			return value.Value{}, 0, err
		}
		return intValueForTag(tag, n), 1 + adv, nil
	case tagUint8, tagUint16, tagUint32, tagUint64:
		n, adv, err := readUvarint(data, pos)
		if err != nil {
			return value.Value{}, 0, err
		}
		return uintValueForTag(tag, n), 1 + adv, nil
	case tagBool:
		if pos >= len(data) {
			return value.Value{}, 0, newErr(KindTruncated, pos, "bool", ErrTruncated)
		}
		return value.NewBool(data[pos] != 0), 2, nil
	case tagChar:
		n, adv, err := readUvarint(data, pos)
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.NewChar(uint16(n)), 1 + adv, nil
	case tagFloat32:
		n, adv, err := readUvarint(data, pos)
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.NewFloat32(float32FromBits(uint32(n))), 1 + adv, nil
	case tagFloat64:
		n, adv, err := readUvarint(data, pos)
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.NewFloat64(float64FromBits(n)), 1 + adv, nil
	case tagDecimal:
		return decodeDecimal(data, offset, ctx)
	case tagGUID:
		if pos+16 > len(data) {
			return value.Value{}, 0, newErr(KindTruncated, pos, "guid", ErrTruncated)
		}
		id, err := uuid.FromBytes(data[pos : pos+16])
		if err != nil {
			return value.Value{}, 0, newErr(KindInvalidHeader, pos, "guid", err)
		}
		return value.NewGUID(id), 1 + 16, nil
	case tagInlineString:
		return decodeInlineString(data, offset, ctx)
	case tagInternedStringRef:
		return decodeInternedStringRef(data, offset, ctx)
	case tagDateTime:
		return decodeDateTime(data, offset)
	case tagDateTimeOffset:
		return decodeDateTimeOffset(data, offset)
	case tagTimeSpan:
		n, adv, err := readVarint(data, pos)
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.NewTimeSpan(value.TimeSpan{Ticks: n}), 1 + adv, nil
	case tagByteBlob:
		return decodeByteBlob(data, offset, ctx)
	case tagEnumIdentity, tagEnumPrimitive:
		return decodeEnum(data, offset, ctx, tag == tagEnumIdentity)
	case tagObjectArray, tagList:
		return decodeSlice(data, offset, ctx, tag == tagObjectArray)
	case tagMap:
		return decodeMap(data, offset, ctx)
	default:
		return value.Value{}, 0, newErr(KindUnknownTag, offset, "value tag", ErrUnknownTag)
	}
}

func intValueForTag(tag byte, n int64) value.Value {
	switch tag {
	case tagInt8:
		return value.NewInt8(int8(n))
	case tagInt16:
		return value.NewInt16(int16(n))
	case tagInt32:
		return value.NewInt32(int32(n))
	default:
		return value.NewInt64(n)
	}
}

func uintValueForTag(tag byte, n uint64) value.Value {
	switch tag {
	case tagUint8:
		return value.NewUint8(uint8(n))
	case tagUint16:
		return value.NewUint16(uint16(n))
	case tagUint32:
		return value.NewUint32(uint32(n))
	default:
		return value.NewUint64(n)
	}
}

func decodeDecimal(data []byte, offset int, ctx *decodeCtx) (value.Value, int, error) {
	pos := offset + 1
	if pos+2 > len(data) {
		return value.Value{}, 0, newErr(KindTruncated, pos, "decimal header", ErrTruncated)
	}
	scale := data[pos]
	negative := data[pos+1] != 0
	pos += 2
	length, adv, err := readUvarint(data, pos)
	if err != nil {
		return value.Value{}, 0, err
	}
	pos += adv
	if pos+int(length) > len(data) {
		return value.Value{}, 0, newErr(KindTruncated, pos, "decimal magnitude", ErrTruncated)
	}
	mag := new(big.Int).SetBytes(data[pos : pos+int(length)])
	total := (pos + int(length)) - offset
	return value.NewDecimal(value.Decimal{Magnitude: mag, Scale: scale, Negative: negative}), total, nil
}

func decodeInlineString(data []byte, offset int, ctx *decodeCtx) (value.Value, int, error) {
	pos := offset + 1
	length, adv, err := readUvarint(data, pos)
	if err != nil {
		return value.Value{}, 0, err
	}
	pos += adv
	if ctx != nil && ctx.opts.MaxStringBytes > 0 && length > uint64(ctx.opts.MaxStringBytes) {
		return value.Value{}, 0, newErr(KindBoundExceeded, pos, "string length", ErrBoundExceeded)
	}
	if pos+int(length) > len(data) {
		return value.Value{}, 0, newErr(KindTruncated, pos, "string bytes", ErrTruncated)
	}
	s := string(data[pos : pos+int(length)])
	total := (pos + int(length)) - offset
	return value.NewString(s), total, nil
}

func decodeInternedStringRef(data []byte, offset int, ctx *decodeCtx) (value.Value, int, error) {
	pos := offset + 1
	idx, adv, err := readUvarint(data, pos)
	if err != nil {
		return value.Value{}, 0, err
	}
	if ctx == nil || int(idx) >= len(ctx.strings) {
		return value.Value{}, 0, newErr(KindInvalidHeader, pos, "string table ref", ErrInvalidHeader)
	}
	return value.NewString(ctx.strings[idx]), 1 + adv, nil
}

func decodeDateTime(data []byte, offset int) (value.Value, int, error) {
	pos := offset + 1
	if pos >= len(data) {
		return value.Value{}, 0, newErr(KindTruncated, pos, "datetime kind", ErrTruncated)
	}
	kind := value.DateTimeKind(data[pos])
	pos++
	nanos, adv, err := readVarint(data, pos)
	if err != nil {
		return value.Value{}, 0, err
	}
	total := (pos + adv) - offset
	return value.NewDateTime(value.DateTime{Time: timeFromUnixNano(nanos), Kind: kind}), total, nil
}

func decodeDateTimeOffset(data []byte, offset int) (value.Value, int, error) {
	pos := offset + 1
	nanos, adv, err := readVarint(data, pos)
	if err != nil {
		return value.Value{}, 0, err
	}
	pos += adv
	offMin, adv2, err := readVarint(data, pos)
	if err != nil {
		return value.Value{}, 0, err
	}
	total := (pos + adv2) - offset
	return value.NewDateTimeOffset(value.DateTimeOffset{Time: timeFromUnixNano(nanos), OffsetMinutes: int16(offMin)}), total, nil
}

func decodeByteBlob(data []byte, offset int, ctx *decodeCtx) (value.Value, int, error) {
	pos := offset + 1
	length, adv, err := readUvarint(data, pos)
	if err != nil {
		return value.Value{}, 0, err
	}
	pos += adv
	if ctx != nil && ctx.opts.MaxStringBytes > 0 && length > uint64(ctx.opts.MaxStringBytes) {
		return value.Value{}, 0, newErr(KindBoundExceeded, pos, "blob length", ErrBoundExceeded)
	}
	if pos+int(length) > len(data) {
		return value.Value{}, 0, newErr(KindTruncated, pos, "blob bytes", ErrTruncated)
	}
	b := append([]byte(nil), data[pos:pos+int(length)]...)
	total := (pos + int(length)) - offset
	return value.NewBytes(b), total, nil
}

func decodeEnum(data []byte, offset int, ctx *decodeCtx, identity bool) (value.Value, int, error) {
	pos := offset + 1
	var typeID string
	if identity {
		if ctx != nil && ctx.types != nil {
			idx, adv, err := readUvarint(data, pos)
			if err != nil {
				return value.Value{}, 0, err
			}
			pos += adv
			if int(idx) >= len(ctx.types) {
				return value.Value{}, 0, newErr(KindInvalidHeader, pos, "type table ref", ErrInvalidHeader)
			}
			typeID = ctx.types[idx]
		} else {
			length, adv, err := readUvarint(data, pos)
			if err != nil {
				return value.Value{}, 0, err
			}
			pos += adv
			if pos+int(length) > len(data) {
				return value.Value{}, 0, newErr(KindTruncated, pos, "type id", ErrTruncated)
			}
			typeID = string(data[pos : pos+int(length)])
			pos += int(length)
		}
	}
	underlying, adv, err := readVarint(data, pos)
	if err != nil {
		return value.Value{}, 0, err
	}
	pos += adv
	total := pos - offset
	if identity {
		return value.NewEnum(value.Enum{Underlying: underlying, TypeID: typeID, HasType: true}), total, nil
	}
	return value.NewEnum(value.Enum{Underlying: underlying}), total, nil
}

func decodeSlice(data []byte, offset int, ctx *decodeCtx, objectArray bool) (value.Value, int, error) {
	pos := offset + 1
	count, adv, err := readUvarint(data, pos)
	if err != nil {
		return value.Value{}, 0, err
	}
	pos += adv
	if ctx != nil && ctx.opts.MaxListLen > 0 && count > uint64(ctx.opts.MaxListLen) {
		return value.Value{}, 0, newErr(KindBoundExceeded, pos, "list length", ErrBoundExceeded)
	}
	if ctx != nil {
		ctx.depth++
		defer func() { ctx.depth-- }()
		if err := ctx.checkDepth(pos); err != nil {
			return value.Value{}, 0, err
		}
	}
	elems := make([]value.Value, 0, count)
	for i := uint64(0); i < count; i++ {
		v, adv, err := decodeValue(data, pos, ctx)
		if err != nil {
			return value.Value{}, 0, err
		}
		elems = append(elems, v)
		pos += adv
	}
	total := pos - offset
	if objectArray {
		return value.NewObjectArray(elems), total, nil
	}
	return value.NewList(elems), total, nil
}

func decodeMap(data []byte, offset int, ctx *decodeCtx) (value.Value, int, error) {
	pos := offset + 1
	count, adv, err := readUvarint(data, pos)
	if err != nil {
		return value.Value{}, 0, err
	}
	pos += adv
	if ctx != nil && ctx.opts.MaxListLen > 0 && count > uint64(ctx.opts.MaxListLen) {
		return value.Value{}, 0, newErr(KindBoundExceeded, pos, "map length", ErrBoundExceeded)
	}
	if ctx != nil {
		ctx.depth++
		defer func() { ctx.depth-- }()
		if err := ctx.checkDepth(pos); err != nil {
			return value.Value{}, 0, err
		}
	}
	m := value.NewMap()
	for i := uint64(0); i < count; i++ {
		k, adv, err := decodeValue(data, pos, ctx)
		if err != nil {
			return value.Value{}, 0, err
		}
		pos += adv
		v, adv2, err := decodeValue(data, pos, ctx)
		if err != nil {
			return value.Value{}, 0, err
		}
		pos += adv2
		m.Set(k, v)
	}
	total := pos - offset
	return value.NewMapValue(m), total, nil
}
