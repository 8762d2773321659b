package diff

import (
	"testing"

	"deltagraph/delta"
	"deltagraph/internal/fixtures"
	"deltagraph/value"
)

func TestComputeNoChangeIsEmpty(t *testing.T) {
	a := &fixtures.Widget{Name: "bolt", Count: 3}
	b := &fixtures.Widget{Name: "bolt", Count: 3}
	doc := Compute(a, b, fixtures.WidgetDescriptor, DefaultOptions())
	if !doc.IsEmpty() {
		t.Fatalf("identical widgets must diff to an empty document, got %d ops", doc.Len())
	}
}

func TestComputeScalarChange(t *testing.T) {
	a := &fixtures.Widget{Name: "bolt", Count: 3}
	b := &fixtures.Widget{Name: "bolt", Count: 5}
	doc := Compute(a, b, fixtures.WidgetDescriptor, DefaultOptions())
	ops := delta.All(doc)
	if len(ops) != 1 || ops[0].Kind != delta.SetMember || ops[0].MemberIndex != fixtures.WidgetCount {
		t.Fatalf("want a single SetMember(Count), got %+v", ops)
	}
	if ops[0].Value.AsInt64() != 5 {
		t.Fatalf("want new value 5, got %v", ops[0].Value.AsInt64())
	}
}

func TestComputeBothNilIsEmpty(t *testing.T) {
	doc := Compute(nil, nil, fixtures.WidgetDescriptor, DefaultOptions())
	if !doc.IsEmpty() {
		t.Fatal("nil vs nil must be empty")
	}
}

func TestComputeOneNilIsReplaceObject(t *testing.T) {
	b := &fixtures.Widget{Name: "bolt"}
	doc := Compute(nil, b, fixtures.WidgetDescriptor, DefaultOptions())
	ops := delta.All(doc)
	if len(ops) != 1 || ops[0].Kind != delta.ReplaceObject {
		t.Fatalf("want a single ReplaceObject, got %+v", ops)
	}
}

func TestComputeNestedSuppression(t *testing.T) {
	a := &fixtures.Widget{Name: "bolt", Child: &fixtures.Widget{Name: "nut"}}
	b := &fixtures.Widget{Name: "bolt", Child: &fixtures.Widget{Name: "nut"}}
	doc := Compute(a, b, fixtures.WidgetDescriptor, DefaultOptions())
	if !doc.IsEmpty() {
		t.Fatalf("deep-equal nested child must suppress NestedMember entirely, got %d ops", doc.Len())
	}
}

func TestComputeNestedMemberEmitted(t *testing.T) {
	a := &fixtures.Widget{Name: "bolt", Child: &fixtures.Widget{Name: "nut", Count: 1}}
	b := &fixtures.Widget{Name: "bolt", Child: &fixtures.Widget{Name: "nut", Count: 2}}
	doc := Compute(a, b, fixtures.WidgetDescriptor, DefaultOptions())
	ops := delta.All(doc)
	if len(ops) != 1 || ops[0].Kind != delta.NestedMember || ops[0].MemberIndex != fixtures.WidgetChild {
		t.Fatalf("want a single NestedMember(Child), got %+v", ops)
	}
	if ops[0].Nested.IsEmpty() {
		t.Fatal("nested subdocument must not be empty")
	}
}

func TestComputePositionalSequenceAppend(t *testing.T) {
	a := &fixtures.Widget{Tags: []string{"x", "y"}}
	b := &fixtures.Widget{Tags: []string{"x", "y", "z"}}
	doc := Compute(a, b, fixtures.WidgetDescriptor, DefaultOptions())
	ops := delta.All(doc)
	if len(ops) != 1 || ops[0].Kind != delta.SeqAddAt || ops[0].Index != 2 {
		t.Fatalf("want a single SeqAddAt(2, z), got %+v", ops)
	}
}

func TestComputePositionalSequenceRemoveDescending(t *testing.T) {
	a := &fixtures.Widget{Tags: []string{"x", "y", "z"}}
	b := &fixtures.Widget{Tags: []string{"x"}}
	doc := Compute(a, b, fixtures.WidgetDescriptor, DefaultOptions())
	ops := delta.All(doc)
	if len(ops) != 2 {
		t.Fatalf("want 2 removes, got %+v", ops)
	}
	if ops[0].Index != 2 || ops[1].Index != 1 {
		t.Fatalf("removes must be strictly descending (P7), got indices %d then %d", ops[0].Index, ops[1].Index)
	}
}

func TestComputeKeyedMultisetReorderIsEmpty(t *testing.T) {
	a := &fixtures.Widget{Parts: []fixtures.Part{{SKU: "a", Qty: 1}, {SKU: "b", Qty: 2}}}
	b := &fixtures.Widget{Parts: []fixtures.Part{{SKU: "b", Qty: 2}, {SKU: "a", Qty: 1}}}
	doc := Compute(a, b, fixtures.WidgetDescriptor, DefaultOptions())
	if !doc.IsEmpty() {
		t.Fatalf("reordering a keyed multiset with no content change must be empty, got %d ops", doc.Len())
	}
}

func TestComputeKeyedMultisetAddRemoveModify(t *testing.T) {
	a := &fixtures.Widget{Parts: []fixtures.Part{{SKU: "a", Qty: 1}, {SKU: "b", Qty: 2}}}
	b := &fixtures.Widget{Parts: []fixtures.Part{{SKU: "a", Qty: 9}, {SKU: "c", Qty: 3}}}
	doc := Compute(a, b, fixtures.WidgetDescriptor, DefaultOptions())
	ops := delta.All(doc)

	var sawNested, sawRemove, sawAdd bool
	for _, op := range ops {
		switch op.Kind {
		case delta.SeqNestedAt:
			sawNested = true
		case delta.SeqRemoveAt:
			sawRemove = true
		case delta.SeqAddAt:
			sawAdd = true
		}
	}
	if !sawNested || !sawRemove || !sawAdd {
		t.Fatalf("expected one nested modify, one remove, one add; got %+v", ops)
	}
}

func TestComputeMapAddRemoveChange(t *testing.T) {
	a := &fixtures.Widget{Attrs: value.NewMap()}
	a.Attrs.Set(value.NewString("color"), value.NewString("red"))
	a.Attrs.Set(value.NewString("weight"), value.NewInt32(5))

	b := &fixtures.Widget{Attrs: value.NewMap()}
	b.Attrs.Set(value.NewString("color"), value.NewString("blue"))
	b.Attrs.Set(value.NewString("size"), value.NewInt32(10))

	doc := Compute(a, b, fixtures.WidgetDescriptor, DefaultOptions())
	ops := delta.All(doc)

	var removes, sets int
	for _, op := range ops {
		switch op.Kind {
		case delta.DictRemove:
			removes++
		case delta.DictSet:
			sets++
		}
	}
	if removes != 1 || sets != 2 {
		t.Fatalf("want 1 DictRemove (weight) and 2 DictSet (color, size), got removes=%d sets=%d: %+v", removes, sets, ops)
	}
}

func TestComputeSelfDiffIsEmpty(t *testing.T) {
	a := &fixtures.Widget{Name: "bolt", Count: 1, Tags: []string{"x"}}
	b := &fixtures.Widget{Name: "nut", Count: 2, Tags: []string{"x", "y"}}
	doc := Compute(a, b, fixtures.WidgetDescriptor, DefaultOptions())
	if doc.IsEmpty() {
		t.Fatal("a != b must not diff to empty")
	}

	// Diffing b against itself must yield empty (P4).
	doc2 := Compute(b, b, fixtures.WidgetDescriptor, DefaultOptions())
	if !doc2.IsEmpty() {
		t.Fatalf("diffing a value against itself must be empty, got %d ops", doc2.Len())
	}
}

func TestComputeRootOrderInsensitiveFallsBackForUnsetMemberPolicy(t *testing.T) {
	// Tags declares no Policy.OrderInsensitive of its own, so the root
	// Options default must govern it: a pure reorder must diff to empty.
	a := &fixtures.Widget{Tags: []string{"a", "b", "c"}}
	b := &fixtures.Widget{Tags: []string{"c", "b", "a"}}

	positional := Compute(a, b, fixtures.WidgetDescriptor, DefaultOptions())
	if positional.IsEmpty() {
		t.Fatal("positional diff of a reordered slice must not be empty")
	}

	opts := DefaultOptions()
	opts.OrderInsensitive = true
	reordered := Compute(a, b, fixtures.WidgetDescriptor, opts)
	if !reordered.IsEmpty() {
		t.Fatalf("root OrderInsensitive must apply to a member with no Policy override, got %d ops", reordered.Len())
	}
}

func TestComputeDeltaShallowSequenceIsWholeValueReplace(t *testing.T) {
	a := &fixtures.Widget{Labels: []string{"x", "y"}}
	b := &fixtures.Widget{Labels: []string{"x", "y", "z"}}
	doc := Compute(a, b, fixtures.WidgetDescriptor, DefaultOptions())
	ops := delta.All(doc)
	if len(ops) != 1 || ops[0].Kind != delta.SetMember || ops[0].MemberIndex != fixtures.WidgetLabels {
		t.Fatalf("delta_shallow sequence must collapse to a single whole-value SetMember, got %+v", ops)
	}
	if len(ops[0].Value.AsSlice()) != 3 {
		t.Fatalf("want the whole new Labels slice as the SetMember payload, got %+v", ops[0].Value)
	}
}

func TestComputeDeltaShallowSequenceNoChangeIsEmpty(t *testing.T) {
	a := &fixtures.Widget{Labels: []string{"x", "y"}}
	b := &fixtures.Widget{Labels: []string{"x", "y"}}
	doc := Compute(a, b, fixtures.WidgetDescriptor, DefaultOptions())
	if !doc.IsEmpty() {
		t.Fatalf("identical delta_shallow sequences must diff to empty, got %d ops", doc.Len())
	}
}

func TestComputeTrackCyclesSelfReferenceTerminates(t *testing.T) {
	// Each side is its own Child, a direct cycle: without cycle tracking
	// this recursion bottoms out only at MaxDepth. With TrackCycles on,
	// the root pair (a, b) revisits itself one level down and the walk
	// terminates immediately (P10) with the structurally-equal result.
	a := &fixtures.Widget{Name: "loop"}
	a.Child = a
	b := &fixtures.Widget{Name: "loop"}
	b.Child = b

	opts := DefaultOptions()
	opts.TrackCycles = true
	doc := Compute(a, b, fixtures.WidgetDescriptor, opts)
	if !doc.IsEmpty() {
		t.Fatalf("two structurally-identical self-cycles must diff to empty, got %d ops", doc.Len())
	}
}

func TestComputeTrackCyclesDetectsChangeAcrossBackEdge(t *testing.T) {
	a := &fixtures.Widget{Name: "loop", Count: 1}
	a.Child = a
	b := &fixtures.Widget{Name: "loop", Count: 2}
	b.Child = b

	opts := DefaultOptions()
	opts.TrackCycles = true
	doc := Compute(a, b, fixtures.WidgetDescriptor, opts)
	ops := delta.All(doc)
	if len(ops) != 1 || ops[0].Kind != delta.SetMember || ops[0].MemberIndex != fixtures.WidgetCount {
		t.Fatalf("want a single SetMember(Count) found before the cycle is revisited, got %+v", ops)
	}
}

func TestComputeFromTrackerEmitsOnlyMarkedMembers(t *testing.T) {
	a := fixtures.NewTrackedWidget(fixtures.WidgetCount)
	a.Name = "bolt"
	a.Count = 3
	b := &fixtures.Widget{Name: "nut", Count: 5} // Name also differs, but its bit is never marked

	doc := ComputeFromTracker(a, b, fixtures.WidgetDescriptor, DefaultOptions())
	ops := delta.All(doc)
	if len(ops) != 1 || ops[0].Kind != delta.SetMember || ops[0].MemberIndex != fixtures.WidgetCount {
		t.Fatalf("want a single SetMember(Count) from the marked bit alone, got %+v", ops)
	}
}

func TestComputeFromTrackerValidateOnEmitCatchesUnmarkedChanges(t *testing.T) {
	a := fixtures.NewTrackedWidget(fixtures.WidgetCount)
	a.Name = "bolt"
	a.Count = 3
	b := &fixtures.Widget{Name: "nut", Count: 5}

	opts := DefaultOptions()
	opts.ValidateOnEmit = true
	doc := ComputeFromTracker(a, b, fixtures.WidgetDescriptor, opts)
	ops := delta.All(doc)
	if len(ops) != 2 {
		t.Fatalf("validate-on-emit must also catch the unmarked Name change, got %+v", ops)
	}
}

func TestComputeFromTrackerNoDirtyBitsIsEmpty(t *testing.T) {
	a := fixtures.NewTrackedWidget()
	a.Name = "bolt"
	b := &fixtures.Widget{Name: "bolt"}

	doc := ComputeFromTracker(a, b, fixtures.WidgetDescriptor, DefaultOptions())
	if !doc.IsEmpty() {
		t.Fatalf("no dirty bits set and no validate-on-emit must produce an empty document, got %d ops", doc.Len())
	}
}
