// Package value implements the tagged union of wire-representable values
// that delta operations carry as payloads (C1 in the design).
//
// A Value is always one of the variants enumerated by Kind; constructing
// one through the matching New* function is the only supported way to get
// a valid Value, since the zero Value (KindNull) is already meaningful.
package value

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the variant a Value carries. The numeric values are
// not wire tags (see package codec's tag* constants for those) — they only need to be stable
// within a process.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindBool
	KindChar
	KindFloat32
	KindFloat64
	KindDecimal
	KindGUID
	KindString
	KindDateTime
	KindDateTimeOffset
	KindTimeSpan
	KindBytes
	KindObjectArray
	KindList
	KindMap
	KindNested
	KindEnum
)

// DateTimeKind records which of .NET's DateTimeKind variants a DateTime
// value carries, per §3.3.
type DateTimeKind uint8

const (
	DateTimeUnspecified DateTimeKind = iota
	DateTimeUTC
	DateTimeLocal
)

// DateTime is a date-time value tagged with its DateTimeKind.
type DateTime struct {
	Time time.Time
	Kind DateTimeKind
}

// DateTimeOffset is a date-time value carrying an explicit UTC offset in
// minutes, independent of the host's local timezone database.
type DateTimeOffset struct {
	Time          time.Time
	OffsetMinutes int16
}

// TimeSpan is a duration expressed in 100-nanosecond ticks, matching
// .NET's TimeSpan resolution.
type TimeSpan struct {
	Ticks int64
}

// Decimal mirrors the wire layout in §3.3: scale (0..28), sign, and a
// 96-bit unsigned magnitude. It intentionally does not reuse a base-10
// big-decimal library (see DESIGN.md) because none in the pack models this
// exact {scale, sign, 96-bit magnitude} shape.
type Decimal struct {
	Magnitude *big.Int // unsigned, must fit in 96 bits
	Scale     uint8     // 0..28
	Negative  bool
}

// Enum carries an underlying integer value and, when identity is enabled,
// the originating type's identifier so a decoder can restore the exact
// runtime type (§3.3 "Enum identity").
type Enum struct {
	Underlying int64
	TypeID     string // empty when identity is not carried
	HasType    bool
}

// Value is the tagged union described by §3.3. The zero Value is KindNull.
type Value struct {
	kind Kind

	i64  int64  // signed integers, bool (0/1), char (code unit), enum underlying
	u64  uint64 // unsigned integers
	f32  float32
	f64  float64
	str  string // string payload, or enum TypeID
	guid uuid.UUID
	dt   DateTime
	dto  DateTimeOffset
	ts   TimeSpan
	dec  Decimal
	blob []byte
	objs []Value // object array / list
	m    *Map
	nest interface{} // KindNested: opaque record, shape deferred to descriptor
	hasT bool        // enum: type identity present
}

// Map is a scalar-keyed map value. Keys are compared by Go's native ==
// on the key's payload (string, signed, unsigned or GUID; any other kind
// compares as the whole Value); there is no configurable key comparer.
// Iteration order is insertion order so that codec output stays
// deterministic without an auxiliary sort when the caller doesn't need one.
type Map struct {
	keys   []Value
	values []Value
	index  map[interface{}]int
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{index: make(map[interface{}]int)}
}

func mapKey(k Value) interface{} {
	switch k.kind {
	case KindString:
		return k.str
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return k.i64
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return k.u64
	case KindGUID:
		return k.guid
	default:
		return k
	}
}

// Set inserts or updates key k with value v, preserving first-seen order.
func (m *Map) Set(k, v Value) {
	mk := mapKey(k)
	if i, ok := m.index[mk]; ok {
		m.values[i] = v
		return
	}
	m.index[mk] = len(m.keys)
	m.keys = append(m.keys, k)
	m.values = append(m.values, v)
}

// Get returns the value for key k and whether it was present.
func (m *Map) Get(k Value) (Value, bool) {
	if i, ok := m.index[mapKey(k)]; ok {
		return m.values[i], true
	}
	return Value{}, false
}

// Remove deletes key k if present, preserving the relative order of the
// remaining entries.
func (m *Map) Remove(k Value) bool {
	i, ok := m.index[mapKey(k)]
	if !ok {
		return false
	}
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.values = append(m.values[:i], m.values[i+1:]...)
	delete(m.index, mapKey(k))
	for j := i; j < len(m.keys); j++ {
		m.index[mapKey(m.keys[j])] = j
	}
	return true
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Each calls fn for every key/value pair in insertion order.
func (m *Map) Each(fn func(k, v Value)) {
	for i := range m.keys {
		fn(m.keys[i], m.values[i])
	}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

func NewInt8(n int8) Value   { return Value{kind: KindInt8, i64: int64(n)} }
func NewInt16(n int16) Value { return Value{kind: KindInt16, i64: int64(n)} }
func NewInt32(n int32) Value { return Value{kind: KindInt32, i64: int64(n)} }
func NewInt64(n int64) Value { return Value{kind: KindInt64, i64: n} }

func NewUint8(n uint8) Value   { return Value{kind: KindUint8, u64: uint64(n)} }
func NewUint16(n uint16) Value { return Value{kind: KindUint16, u64: uint64(n)} }
func NewUint32(n uint32) Value { return Value{kind: KindUint32, u64: uint64(n)} }
func NewUint64(n uint64) Value { return Value{kind: KindUint64, u64: n} }

func NewBool(b bool) Value {
	var i int64
	if b {
		i = 1
	}
	return Value{kind: KindBool, i64: i}
}

// NewChar stores r as a UTF-16 code unit, per §3.3. Callers passing a
// rune outside the basic multilingual plane get only its low surrogate
// behavior truncated away — this mirrors the host system's single
// code-unit char type and is not meant for full-codepoint storage (use
// KindString for that).
func NewChar(r uint16) Value { return Value{kind: KindChar, i64: int64(r)} }

func NewFloat32(f float32) Value { return Value{kind: KindFloat32, f32: f} }
func NewFloat64(f float64) Value { return Value{kind: KindFloat64, f64: f} }

func NewDecimal(d Decimal) Value { return Value{kind: KindDecimal, dec: d} }

func NewGUID(id uuid.UUID) Value { return Value{kind: KindGUID, guid: id} }

func NewString(s string) Value { return Value{kind: KindString, str: s} }

func NewDateTime(dt DateTime) Value             { return Value{kind: KindDateTime, dt: dt} }
func NewDateTimeOffset(dto DateTimeOffset) Value { return Value{kind: KindDateTimeOffset, dto: dto} }
func NewTimeSpan(ts TimeSpan) Value             { return Value{kind: KindTimeSpan, ts: ts} }

func NewBytes(b []byte) Value { return Value{kind: KindBytes, blob: b} }

// NewObjectArray stores a homogeneous array of objects (§3.3). Homogeneity
// is a descriptor-level contract, not enforced by Value itself.
func NewObjectArray(elems []Value) Value { return Value{kind: KindObjectArray, objs: elems} }

// NewList stores an ordered, heterogeneous-capable list.
func NewList(elems []Value) Value { return Value{kind: KindList, objs: elems} }

func NewMapValue(m *Map) Value { return Value{kind: KindMap, m: m} }

// NewNested wraps a record payload whose shape is deferred to a type
// descriptor (§3.3). The record itself is carried by reference as an
// opaque interface{}; Value only tags it as KindNested.
func NewNested(record interface{}) Value {
	return Value{kind: KindNested, nest: record}
}

// AsInt64 returns v's signed-integer payload. Valid for KindInt8/16/32/64,
// KindBool (0 or 1) and KindChar (code unit widened to int64).
func (v Value) AsInt64() int64 { return v.i64 }

// AsUint64 returns v's unsigned-integer payload.
func (v Value) AsUint64() uint64 { return v.u64 }

// AsBool returns v's boolean payload.
func (v Value) AsBool() bool { return v.i64 != 0 }

// AsFloat32 returns v's float32 payload.
func (v Value) AsFloat32() float32 { return v.f32 }

// AsFloat64 returns v's float64 payload.
func (v Value) AsFloat64() float64 { return v.f64 }

// AsString returns v's string payload.
func (v Value) AsString() string { return v.str }

// AsGUID returns v's GUID payload.
func (v Value) AsGUID() uuid.UUID { return v.guid }

// AsDateTime returns v's DateTime payload.
func (v Value) AsDateTime() DateTime { return v.dt }

// AsDateTimeOffset returns v's DateTimeOffset payload.
func (v Value) AsDateTimeOffset() DateTimeOffset { return v.dto }

// AsTimeSpan returns v's TimeSpan payload.
func (v Value) AsTimeSpan() TimeSpan { return v.ts }

// AsDecimal returns v's Decimal payload.
func (v Value) AsDecimal() Decimal { return v.dec }

// AsBytes returns v's byte-blob payload.
func (v Value) AsBytes() []byte { return v.blob }

// AsSlice returns the element slice for KindObjectArray and KindList.
func (v Value) AsSlice() []Value { return v.objs }

// AsMap returns the underlying Map for KindMap.
func (v Value) AsMap() *Map { return v.m }

// AsEnum returns v's Enum payload.
func (v Value) AsEnum() Enum {
	return Enum{Underlying: v.i64, TypeID: v.str, HasType: v.hasT}
}

// NewEnum constructs an enum value, optionally carrying type identity.
func NewEnum(e Enum) Value {
	return Value{kind: KindEnum, i64: e.Underlying, str: e.TypeID, hasT: e.HasType && e.TypeID != ""}
}

// NestedRecord returns the opaque record reference a KindNested value
// wraps, and whether the value actually is KindNested.
func (v Value) NestedRecord() (interface{}, bool) {
	if v.kind != KindNested {
		return nil, false
	}
	return v.nest, true
}
