// Package fixtures provides a small hand-written descriptor.Descriptor
// implementation and record shape shared by the diff, apply, and codec
// package tests. It plays the role the teacher's models.Entity plays for
// storage/binary's tests: one concrete shape exercised by many packages,
// rather than each package inventing its own.
package fixtures

import (
	"errors"

	"deltagraph/descriptor"
	"deltagraph/dirty"
	"deltagraph/value"
)

var errShapeMismatch = errors.New("fixtures: shape mismatch")

// Tag member indices for Widget, in declaration order. Treat these as
// stable — append new members just before WidgetMemberCount rather than
// renumbering existing ones, matching §4.3's append-only member index
// rule.
const (
	WidgetName = iota
	WidgetCount
	WidgetPrice
	WidgetChild
	WidgetTags
	WidgetParts
	WidgetAttrs
	WidgetLabels
	WidgetMemberCount
)

// Widget is the record shape used across package tests: two scalar
// members (Count, Price), one string, one nested self-reference, one
// ordered sequence, one keyed-multiset sequence, one map, and one
// delta_shallow sequence (Labels).
type Widget struct {
	Name  string
	Count int32
	Price float64
	Child *Widget
	Tags  []string
	Parts []Part
	Attrs *value.Map

	// Labels exercises Policy.DeltaShallow on a sequence member: any
	// content difference must collapse to a single whole-value
	// SetMember rather than a positional/keyed-multiset edit script.
	Labels []string

	// Dirty is nil for most test fixtures; NewTrackedWidget attaches one
	// so ComputeFromTracker/Apply's dirty-clearing path has something
	// concrete to exercise.
	Dirty *dirty.Tracker
}

// NewTrackedWidget returns a Widget with a dirty.Tracker attached, and
// marks the member indices in dirtyMembers as changed — the role a
// generated setter plays in a real record (§4.7).
func NewTrackedWidget(dirtyMembers ...int) *Widget {
	w := &Widget{Dirty: dirty.NewTracker(WidgetMemberCount)}
	for _, m := range dirtyMembers {
		w.Dirty.MarkDirty(m)
	}
	return w
}

// Part is Widget's keyed-multiset element: two Parts pair by SKU
// regardless of position.
type Part struct {
	SKU string
	Qty int32
}

// WidgetDescriptor is the shared descriptor for *Widget.
var WidgetDescriptor = widgetDescriptor{}

type widgetDescriptor struct{}

func (widgetDescriptor) Members() []descriptor.Member {
	return []descriptor.Member{
		{StableIndex: WidgetName, Name: "Name", Kind: descriptor.KindString},
		{StableIndex: WidgetCount, Name: "Count", Kind: descriptor.KindScalar},
		{StableIndex: WidgetPrice, Name: "Price", Kind: descriptor.KindScalar},
		{StableIndex: WidgetChild, Name: "Child", Kind: descriptor.KindNestedRecord},
		{StableIndex: WidgetTags, Name: "Tags", Kind: descriptor.KindSequence},
		{
			StableIndex: WidgetParts, Name: "Parts", Kind: descriptor.KindSequence,
			Policy: descriptor.Policy{OrderInsensitive: true, KeyMembers: []string{"SKU"}},
		},
		{StableIndex: WidgetAttrs, Name: "Attrs", Kind: descriptor.KindMap},
		{
			StableIndex: WidgetLabels, Name: "Labels", Kind: descriptor.KindSequence,
			Policy: descriptor.Policy{DeltaShallow: true},
		},
	}
}

func (widgetDescriptor) Get(instance interface{}, m int) value.Value {
	w := instance.(*Widget)
	switch m {
	case WidgetName:
		return value.NewString(w.Name)
	case WidgetCount:
		return value.NewInt32(w.Count)
	case WidgetPrice:
		return value.NewFloat64(w.Price)
	case WidgetChild:
		if w.Child == nil {
			return value.Null()
		}
		return value.NewNested(w.Child)
	default:
		return value.Null()
	}
}

func (widgetDescriptor) Set(instance interface{}, m int, v value.Value) error {
	w := instance.(*Widget)
	switch m {
	case WidgetName:
		w.Name = v.AsString()
	case WidgetCount:
		w.Count = int32(v.AsInt64())
	case WidgetPrice:
		w.Price = v.AsFloat64()
	case WidgetChild:
		if v.IsNull() {
			w.Child = nil
			return nil
		}
		rec, ok := v.NestedRecord()
		if !ok {
			return errShapeMismatch
		}
		child, ok := rec.(*Widget)
		if !ok {
			return errShapeMismatch
		}
		w.Child = child
	case WidgetTags:
		if v.Kind() != value.KindList && v.Kind() != value.KindObjectArray {
			return errShapeMismatch
		}
		tags := make([]string, len(v.AsSlice()))
		for i, e := range v.AsSlice() {
			tags[i] = e.AsString()
		}
		w.Tags = tags
	case WidgetLabels:
		if v.Kind() != value.KindList && v.Kind() != value.KindObjectArray {
			return errShapeMismatch
		}
		labels := make([]string, len(v.AsSlice()))
		for i, e := range v.AsSlice() {
			labels[i] = e.AsString()
		}
		w.Labels = labels
	case WidgetAttrs:
		if v.Kind() != value.KindMap {
			return errShapeMismatch
		}
		w.Attrs = v.AsMap()
	default:
		return errShapeMismatch
	}
	return nil
}

func (widgetDescriptor) Sequence(instance interface{}, m int) descriptor.Sequence {
	w := instance.(*Widget)
	switch m {
	case WidgetTags:
		return &stringSeq{w: w}
	case WidgetParts:
		return &partSeq{w: w}
	case WidgetLabels:
		return &labelSeq{w: w}
	default:
		return nil
	}
}

func (widgetDescriptor) MapAdapter(instance interface{}, m int) descriptor.MapAdapter {
	w := instance.(*Widget)
	if w.Attrs == nil {
		w.Attrs = value.NewMap()
	}
	return &attrMap{w: w}
}

func (widgetDescriptor) ResolveType(v value.Value) (string, descriptor.Descriptor) {
	rec, ok := v.NestedRecord()
	if !ok {
		return "", nil
	}
	switch rec.(type) {
	case *Widget:
		return "Widget", WidgetDescriptor
	case *Part:
		return "Part", PartDescriptor
	default:
		return "", nil
	}
}

func (widgetDescriptor) Tracker(instance interface{}) descriptor.Tracker {
	w := instance.(*Widget)
	if w.Dirty == nil {
		return nil
	}
	return w.Dirty
}
