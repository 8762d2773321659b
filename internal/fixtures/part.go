package fixtures

import (
	"deltagraph/descriptor"
	"deltagraph/value"
)

const (
	PartSKU = iota
	PartQty
	PartMemberCount
)

// PartDescriptor is the shared descriptor for *Part.
var PartDescriptor = partDescriptor{}

type partDescriptor struct{}

func (partDescriptor) Members() []descriptor.Member {
	return []descriptor.Member{
		{StableIndex: PartSKU, Name: "SKU", Kind: descriptor.KindString},
		{StableIndex: PartQty, Name: "Qty", Kind: descriptor.KindScalar},
	}
}

func (partDescriptor) Get(instance interface{}, m int) value.Value {
	p := instance.(*Part)
	switch m {
	case PartSKU:
		return value.NewString(p.SKU)
	case PartQty:
		return value.NewInt32(p.Qty)
	default:
		return value.Null()
	}
}

func (partDescriptor) Set(instance interface{}, m int, v value.Value) error {
	p := instance.(*Part)
	switch m {
	case PartSKU:
		p.SKU = v.AsString()
	case PartQty:
		p.Qty = int32(v.AsInt64())
	default:
		return errShapeMismatch
	}
	return nil
}

func (partDescriptor) Sequence(instance interface{}, m int) descriptor.Sequence { return nil }
func (partDescriptor) MapAdapter(instance interface{}, m int) descriptor.MapAdapter {
	return nil
}

func (partDescriptor) ResolveType(v value.Value) (string, descriptor.Descriptor) {
	rec, ok := v.NestedRecord()
	if !ok {
		return "", nil
	}
	if _, ok := rec.(*Part); ok {
		return "Part", PartDescriptor
	}
	return "", nil
}

func (partDescriptor) Tracker(instance interface{}) descriptor.Tracker { return nil }

// stringSeq adapts Widget.Tags, a plain []string, to descriptor.Sequence.
type stringSeq struct {
	w *Widget
}

func (s *stringSeq) Len() int { return len(s.w.Tags) }

func (s *stringSeq) At(i int) value.Value { return value.NewString(s.w.Tags[i]) }

func (s *stringSeq) Splice(i, removed int, inserted []value.Value) {
	tail := append([]string(nil), s.w.Tags[i+removed:]...)
	out := append(s.w.Tags[:i:i], stringsOf(inserted)...)
	s.w.Tags = append(out, tail...)
}

func (s *stringSeq) ReadOnly() bool { return false }

func stringsOf(vs []value.Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.AsString()
	}
	return out
}

// labelSeq adapts Widget.Labels, a plain []string under Policy.DeltaShallow,
// to descriptor.Sequence.
type labelSeq struct {
	w *Widget
}

func (s *labelSeq) Len() int { return len(s.w.Labels) }

func (s *labelSeq) At(i int) value.Value { return value.NewString(s.w.Labels[i]) }

func (s *labelSeq) Splice(i, removed int, inserted []value.Value) {
	tail := append([]string(nil), s.w.Labels[i+removed:]...)
	out := append(s.w.Labels[:i:i], stringsOf(inserted)...)
	s.w.Labels = append(out, tail...)
}

func (s *labelSeq) ReadOnly() bool { return false }

// partSeq adapts Widget.Parts, a []Part, to descriptor.Sequence. Elements
// are addressed by pointer into the slice so nested diff/apply can
// mutate them in place.
type partSeq struct {
	w *Widget
}

func (s *partSeq) Len() int { return len(s.w.Parts) }

func (s *partSeq) At(i int) value.Value { return value.NewNested(&s.w.Parts[i]) }

func (s *partSeq) Splice(i, removed int, inserted []value.Value) {
	tail := append([]Part(nil), s.w.Parts[i+removed:]...)
	out := append(s.w.Parts[:i:i], partsOf(inserted)...)
	s.w.Parts = append(out, tail...)
}

func (s *partSeq) ReadOnly() bool { return false }

func partsOf(vs []value.Value) []Part {
	out := make([]Part, len(vs))
	for i, v := range vs {
		rec, _ := v.NestedRecord()
		if p, ok := rec.(*Part); ok {
			out[i] = *p
		}
	}
	return out
}

// attrMap adapts Widget.Attrs, a *value.Map, to descriptor.MapAdapter.
type attrMap struct {
	w *Widget
}

func (m *attrMap) Keys() []value.Value {
	keys := make([]value.Value, 0, m.w.Attrs.Len())
	m.w.Attrs.Each(func(k, _ value.Value) { keys = append(keys, k) })
	return keys
}

func (m *attrMap) Get(k value.Value) (value.Value, bool) { return m.w.Attrs.Get(k) }

func (m *attrMap) Set(k, v value.Value) { m.w.Attrs.Set(k, v) }

func (m *attrMap) Remove(k value.Value) bool { return m.w.Attrs.Remove(k) }

func (m *attrMap) ReadOnly() bool { return false }
