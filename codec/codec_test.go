package codec

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"deltagraph/delta"
	"deltagraph/diff"
	"deltagraph/internal/fixtures"
	"deltagraph/value"
)

func sampleDocument() *delta.Document {
	a := &fixtures.Widget{
		Name:  "bolt",
		Count: 3,
		Tags:  []string{"a", "b"},
		Parts: []fixtures.Part{{SKU: "x1", Qty: 1}, {SKU: "x2", Qty: 2}},
	}
	b := &fixtures.Widget{
		Name:  "nut",
		Count: 3,
		Tags:  []string{"a", "b", "c"},
		Parts: []fixtures.Part{{SKU: "x2", Qty: 9}, {SKU: "x3", Qty: 3}},
	}
	a.Attrs = value.NewMap()
	a.Attrs.Set(value.NewString("color"), value.NewString("red"))
	a.Attrs.Set(value.NewString("gone"), value.NewString("soon"))
	b.Attrs = value.NewMap()
	b.Attrs.Set(value.NewString("color"), value.NewString("blue"))
	b.Attrs.Set(value.NewString("new"), value.NewString("here"))

	return diff.Compute(a, b, fixtures.WidgetDescriptor, diff.DefaultOptions())
}

func opsEqual(t *testing.T, doc *delta.Document, got *delta.Document) {
	t.Helper()
	want := delta.All(doc)
	have := delta.All(got)
	if len(want) != len(have) {
		t.Fatalf("op count mismatch: want %d, got %d", len(want), len(have))
	}
	for i := range want {
		if want[i].Nested != nil || have[i].Nested != nil {
			opsEqual(t, want[i].Nested, have[i].Nested)
			want[i].Nested, have[i].Nested = nil, nil
		}
		if !reflect.DeepEqual(want[i], have[i]) {
			t.Fatalf("op %d mismatch:\nwant %+v\ngot  %+v", i, want[i], have[i])
		}
	}
}

func TestRoundTripHeaderless(t *testing.T) {
	doc := sampleDocument()
	data, err := Encode(doc, DefaultOptions())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data, DefaultOptions())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	opsEqual(t, doc, got)
}

func TestRoundTripHeaderedWithTables(t *testing.T) {
	doc := sampleDocument()
	opts := Options{Headered: true, StringTable: true, TypeTable: true, EnumIdentity: true, Fingerprint: Fingerprint(fixtures.WidgetDescriptor)}
	data, err := Encode(doc, opts)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data, opts)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	opsEqual(t, doc, got)
}

func TestEncodeIsDeterministic(t *testing.T) {
	doc := sampleDocument()
	opts := Options{Headered: true, StringTable: true}
	a, err := Encode(doc, opts)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := Encode(doc, opts)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("encoding the same document twice must produce byte-identical output")
	}
}

func TestDecodeHeaderedRejectsHeaderlessInput(t *testing.T) {
	doc := sampleDocument()
	data, err := Encode(doc, DefaultOptions())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = Decode(data, Options{Headered: true})
	if err == nil {
		t.Fatal("decoding a headerless stream in headered mode must fail")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != KindInvalidHeader {
		t.Fatalf("want KindInvalidHeader, got %v", err)
	}
}

func TestDecodeHeaderlessRejectsHeaderedInput(t *testing.T) {
	doc := sampleDocument()
	data, err := Encode(doc, Options{Headered: true})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = Decode(data, Options{Headered: false})
	if err == nil {
		t.Fatal("decoding a headered stream in headerless mode must fail")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != KindInvalidHeader {
		t.Fatalf("want KindInvalidHeader, got %v", err)
	}
}

func TestDecodeMaxOpsExceeded(t *testing.T) {
	w := delta.NewWriter()
	for i := 0; i < 10; i++ {
		w.SetMember(fixtures.WidgetCount, value.NewInt32(int32(i)))
	}
	data, err := Encode(w.Document(), DefaultOptions())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = Decode(data, Options{MaxOps: 5})
	assertBoundExceeded(t, err)
}

func TestDecodeMaxNestingExceeded(t *testing.T) {
	w := delta.NewWriter()
	inner := delta.NewWriter()
	inner.SetMember(fixtures.WidgetCount, value.NewInt32(1))
	w.NestedMember(fixtures.WidgetChild, inner.Document())
	data, err := Encode(w.Document(), DefaultOptions())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = Decode(data, Options{MaxNesting: 1})
	assertBoundExceeded(t, err)
}

func TestDecodeMaxStringBytesExceeded(t *testing.T) {
	w := delta.NewWriter()
	w.SetMember(fixtures.WidgetName, value.NewString(strings.Repeat("x", 64)))
	data, err := Encode(w.Document(), DefaultOptions())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = Decode(data, Options{MaxStringBytes: 8})
	assertBoundExceeded(t, err)
}

func TestDecodeMaxListLenExceeded(t *testing.T) {
	elems := make([]value.Value, 0, 20)
	for i := 0; i < 20; i++ {
		elems = append(elems, value.NewString("a"))
	}
	w := delta.NewWriter()
	w.SetMember(fixtures.WidgetTags, value.NewList(elems))
	data, err := Encode(w.Document(), DefaultOptions())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = Decode(data, Options{MaxListLen: 5})
	assertBoundExceeded(t, err)
}

func assertBoundExceeded(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("want a BoundExceeded error, got nil")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != KindBoundExceeded {
		t.Fatalf("want KindBoundExceeded, got %v", err)
	}
}

func TestFingerprintStableAcrossCalls(t *testing.T) {
	a := Fingerprint(fixtures.WidgetDescriptor)
	b := Fingerprint(fixtures.WidgetDescriptor)
	if a != b {
		t.Fatal("Fingerprint must be stable for the same descriptor")
	}
}
