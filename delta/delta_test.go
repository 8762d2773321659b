package delta

import (
	"testing"

	"deltagraph/value"
)

func TestEmptyDocument(t *testing.T) {
	w := NewWriter()
	if !w.Document().IsEmpty() {
		t.Fatal("freshly built document must be empty")
	}
}

func TestReplaceObjectNeverEmpty(t *testing.T) {
	w := NewWriter()
	w.ReplaceObject(value.Null())
	if w.Document().IsEmpty() {
		t.Fatal("a document containing ReplaceObject must not be empty (I3)")
	}
}

func TestWriterAppendOrderAndReader(t *testing.T) {
	w := NewWriter()
	w.SetMember(0, value.NewString("a"))
	w.SetMember(1, value.NewString("b"))
	w.DictSet(2, value.NewString("k"), value.NewString("v"))

	r := NewReader(w.Document())
	var kinds []Kind
	for {
		op, ok := r.Next()
		if !ok {
			break
		}
		kinds = append(kinds, op.Kind)
	}
	want := []Kind{SetMember, SetMember, DictSet}
	if len(kinds) != len(want) {
		t.Fatalf("got %d ops, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("op %d: got %v want %v", i, kinds[i], want[i])
		}
	}
}

func TestPartialEnumerationDoesNotMutate(t *testing.T) {
	w := NewWriter()
	w.SetMember(0, value.NewInt32(1))
	w.SetMember(1, value.NewInt32(2))

	r := NewReader(w.Document())
	r.Next() // consume one

	if got := w.Document().Len(); got != 2 {
		t.Fatalf("partial enumeration must not mutate the document, got len %d", got)
	}
}
