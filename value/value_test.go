package value

import (
	"math/big"
	"testing"

	"github.com/google/uuid"
)

func TestDeepEqualScalars(t *testing.T) {
	if !DeepEqual(NewInt32(5), NewInt32(5)) {
		t.Error("expected equal int32 values to compare equal")
	}
	if DeepEqual(NewInt32(5), NewInt32(6)) {
		t.Error("expected unequal int32 values to compare unequal")
	}
	if DeepEqual(NewInt32(5), NewInt64(5)) {
		t.Error("different kinds must never compare equal")
	}
}

func TestDeepEqualNaN(t *testing.T) {
	nan := NewFloat64(nan64())
	if !DeepEqual(nan, nan) {
		t.Error("NaN must compare equal to NaN under DeepEqual")
	}
}

func nan64() float64 {
	var zero float64
	return zero / zero
}

func TestDeepEqualDecimal(t *testing.T) {
	a := NewDecimal(Decimal{Magnitude: big.NewInt(1234), Scale: 2})
	b := NewDecimal(Decimal{Magnitude: big.NewInt(1234), Scale: 2})
	c := NewDecimal(Decimal{Magnitude: big.NewInt(1234), Scale: 3})
	if !DeepEqual(a, b) {
		t.Error("identical decimals must compare equal")
	}
	if DeepEqual(a, c) {
		t.Error("decimals differing in scale must compare unequal")
	}
}

func TestMapSetGetRemove(t *testing.T) {
	m := NewMap()
	m.Set(NewString("env"), NewString("prod"))
	m.Set(NewString("theme"), NewString("dark"))

	if v, ok := m.Get(NewString("env")); !ok || v.AsString() != "prod" {
		t.Fatalf("expected env=prod, got %v ok=%v", v, ok)
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", m.Len())
	}
	if !m.Remove(NewString("env")) {
		t.Fatal("expected Remove to report the key was present")
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 entry after removal, got %d", m.Len())
	}
	if _, ok := m.Get(NewString("env")); ok {
		t.Fatal("removed key must no longer be present")
	}
}

func TestGUIDRoundtrip(t *testing.T) {
	id := uuid.New()
	v := NewGUID(id)
	if v.AsGUID() != id {
		t.Fatal("GUID value did not round-trip")
	}
}

func TestNestedRecord(t *testing.T) {
	type record struct{ X int }
	r := &record{X: 1}
	v := NewNested(r)
	got, ok := v.NestedRecord()
	if !ok || got.(*record) != r {
		t.Fatal("nested record reference did not round-trip")
	}
}
