package value

import "bytes"

// DeepEqual performs structural comparison of two values. It is the
// strict, option-free baseline: the diff engine compares strings, floats,
// decimals and byte blobs through diff.Options so that epsilons, NaN
// treatment and string comparators are configurable, and falls back to
// DeepEqual for every other kind; the applicator uses it for the
// SeqAddAt dedup check. KindNested values compare by reference identity.
func DeepEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindInt8, KindInt16, KindInt32, KindInt64, KindBool, KindChar, KindEnum:
		return a.i64 == b.i64 && a.str == b.str && a.hasT == b.hasT
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return a.u64 == b.u64
	case KindFloat32:
		return a.f32 == b.f32 || (isNaN32(a.f32) && isNaN32(b.f32))
	case KindFloat64:
		return a.f64 == b.f64 || (isNaN64(a.f64) && isNaN64(b.f64))
	case KindDecimal:
		return a.dec.Scale == b.dec.Scale && a.dec.Negative == b.dec.Negative &&
			a.dec.Magnitude.Cmp(b.dec.Magnitude) == 0
	case KindGUID:
		return a.guid == b.guid
	case KindString:
		return a.str == b.str
	case KindDateTime:
		return a.dt.Kind == b.dt.Kind && a.dt.Time.Equal(b.dt.Time)
	case KindDateTimeOffset:
		return a.dto.OffsetMinutes == b.dto.OffsetMinutes && a.dto.Time.Equal(b.dto.Time)
	case KindTimeSpan:
		return a.ts.Ticks == b.ts.Ticks
	case KindBytes:
		return bytes.Equal(a.blob, b.blob)
	case KindObjectArray, KindList:
		if len(a.objs) != len(b.objs) {
			return false
		}
		for i := range a.objs {
			if !DeepEqual(a.objs[i], b.objs[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return mapDeepEqual(a.m, b.m)
	case KindNested:
		// Opaque payload equality is a descriptor concern; Value itself
		// can only compare by reference identity.
		return a.nest == b.nest
	default:
		return false
	}
}

func mapDeepEqual(a, b *Map) bool {
	if a.Len() != b.Len() {
		return false
	}
	equal := true
	a.Each(func(k, av Value) {
		bv, ok := b.Get(k)
		if !ok || !DeepEqual(av, bv) {
			equal = false
		}
	})
	return equal
}

func isNaN32(f float32) bool { return f != f }
func isNaN64(f float64) bool { return f != f }
