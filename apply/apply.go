// Package apply implements the applicator (C6 in the design): replaying
// a delta.Document against a target record through its descriptor.Descriptor,
// following the teacher's "materialize then mutate" idiom from
// storage/binary.Reader.
package apply

import (
	"fmt"

	"deltagraph/delta"
	"deltagraph/descriptor"
	"deltagraph/logger"
	"deltagraph/value"
)

// Kind classifies an apply failure, per spec §7's ShapeMismatch/OutOfRange
// categories.
type Kind uint8

const (
	// KindShapeMismatch is raised when a SetMember value is incompatible
	// with the declared member kind.
	KindShapeMismatch Kind = iota
	// KindOutOfRange is raised by StrictRange callers when a sequence
	// index falls outside the target's current bounds; the default
	// applicator instead no-ops (§4.6, §9(a)).
	KindOutOfRange
)

func (k Kind) String() string {
	switch k {
	case KindShapeMismatch:
		return "shape mismatch"
	case KindOutOfRange:
		return "out of range"
	default:
		return "unknown"
	}
}

// Error carries the positional context §7 requires: the offending
// operation kind, the member it targeted, and (for sequence/map ops) the
// index or key involved.
type Error struct {
	Kind        Kind
	OpKind      delta.Kind
	MemberIndex int
	IndexOrKey  interface{}
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("apply: %s: op=%s member=%d pos=%v: %v", e.Kind, e.OpKind, e.MemberIndex, e.IndexOrKey, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// sentinels so callers can errors.Is against a category without caring
// about the positional context wrapped around it.
var (
	ErrShapeMismatch = fmt.Errorf("shape mismatch")
	ErrOutOfRange    = fmt.Errorf("sequence index out of range")
)

func shapeMismatchErr(op delta.Operation, member int) error {
	return &Error{Kind: KindShapeMismatch, OpKind: op.Kind, MemberIndex: member, IndexOrKey: op.Index, Err: ErrShapeMismatch}
}

func outOfRangeErr(op delta.Operation, member, index int) error {
	return &Error{Kind: KindOutOfRange, OpKind: op.Kind, MemberIndex: member, IndexOrKey: index, Err: ErrOutOfRange}
}

// Options tunes apply behavior. StrictRange selects the "throw" variant
// of the out-of-range policy §9(a) mentions as the non-default choice;
// the zero value is the spec's recommended default (silent no-op).
type Options struct {
	// StrictRange makes out-of-range sequence indices during Apply a
	// reported OutOfRange error instead of a silent no-op. Operations
	// inside a nested subdocument (the Nested field of NestedMember,
	// SeqNestedAt and DictNested) are applied with the zero Options, so
	// an out-of-range index there is always a no-op.
	// Default: false.
	StrictRange bool
}

// lastAdd remembers the most recently applied SeqAddAt within one Apply
// call, to implement the §4.6 dedup rule.
type lastAdd struct {
	member int
	index  int
	value  value.Value
	valid  bool
}

// Apply replays doc against target through desc, returning the
// (possibly new) root reference — Apply may replace the root entirely
// via ReplaceObject, in which case any trailing ops in that document
// scope are ignored.
func Apply(target interface{}, doc *delta.Document, desc descriptor.Descriptor, opts Options) (interface{}, error) {
	root, err := applyDocument(target, doc, desc, opts)
	if err != nil {
		return target, err
	}
	if root != nil {
		if tracker := desc.Tracker(root); tracker != nil {
			clearAll(tracker)
		}
	}
	return root, nil
}

func clearAll(t descriptor.Tracker) {
	for t.HasAnyDirty() {
		if _, ok := t.PopNextDirty(); !ok {
			break
		}
	}
}

func applyDocument(target interface{}, doc *delta.Document, desc descriptor.Descriptor, opts Options) (interface{}, error) {
	reader := delta.NewReader(doc)
	var last lastAdd
	for {
		op, ok := reader.Next()
		if !ok {
			break
		}
		switch op.Kind {
		case delta.ReplaceObject:
			rec, _ := op.Value.NestedRecord()
			return rec, nil
		case delta.SetMember:
			last.valid = false
			if err := applySetMember(target, op, desc); err != nil {
				return target, err
			}
		case delta.NestedMember:
			last.valid = false
			if err := applyNestedMember(target, op, desc); err != nil {
				return target, err
			}
		case delta.SeqAddAt:
			if err := applySeqAddAt(target, op, desc, &last, opts); err != nil {
				return target, err
			}
		case delta.SeqReplaceAt:
			last.valid = false
			if err := applySeqReplaceAt(target, op, desc, opts); err != nil {
				return target, err
			}
		case delta.SeqRemoveAt:
			last.valid = false
			if err := applySeqRemoveAt(target, op, desc, opts); err != nil {
				return target, err
			}
		case delta.SeqNestedAt:
			last.valid = false
			if err := applySeqNestedAt(target, op, desc, opts); err != nil {
				return target, err
			}
		case delta.DictSet:
			last.valid = false
			applyDictSet(target, op, desc)
		case delta.DictRemove:
			last.valid = false
			applyDictRemove(target, op, desc)
		case delta.DictNested:
			last.valid = false
			if err := applyDictNested(target, op, desc); err != nil {
				return target, err
			}
		default:
			logger.TraceIf("apply", "ignoring unknown op kind %d", op.Kind)
		}
	}
	return target, nil
}

func applySetMember(target interface{}, op delta.Operation, desc descriptor.Descriptor) error {
	if err := desc.Set(target, op.MemberIndex, op.Value); err != nil {
		return shapeMismatchErr(op, op.MemberIndex)
	}
	return nil
}

func applyNestedMember(target interface{}, op delta.Operation, desc descriptor.Descriptor) error {
	cur := desc.Get(target, op.MemberIndex)
	rec, ok := cur.NestedRecord()
	if !ok || rec == nil {
		return shapeMismatchErr(op, op.MemberIndex)
	}
	_, memberDesc := desc.ResolveType(cur)
	if memberDesc == nil {
		return shapeMismatchErr(op, op.MemberIndex)
	}
	newRec, err := applyDocument(rec, op.Nested, memberDesc, Options{})
	if err != nil {
		return err
	}
	if newRec != rec {
		return desc.Set(target, op.MemberIndex, value.NewNested(newRec))
	}
	return nil
}

func applySeqAddAt(target interface{}, op delta.Operation, desc descriptor.Descriptor, last *lastAdd, opts Options) error {
	if last.valid && last.member == op.MemberIndex && last.index == op.Index && value.DeepEqual(last.value, op.Value) {
		// §4.6 dedup rule: an immediately repeated SeqAddAt(member, i, v)
		// is a duplicate of the previous one, ignored on replay.
		*last = lastAdd{member: op.MemberIndex, index: op.Index, value: op.Value, valid: true}
		return nil
	}
	seq := withWritableSequence(target, desc, op.MemberIndex)
	i := op.Index
	if i > seq.Len() {
		i = seq.Len()
	}
	seq.Splice(i, 0, []value.Value{op.Value})
	*last = lastAdd{member: op.MemberIndex, index: op.Index, value: op.Value, valid: true}
	return nil
}

func applySeqReplaceAt(target interface{}, op delta.Operation, desc descriptor.Descriptor, opts Options) error {
	seq := withWritableSequence(target, desc, op.MemberIndex)
	if op.Index < 0 || op.Index >= seq.Len() {
		if opts.StrictRange {
			return outOfRangeErr(op, op.MemberIndex, op.Index)
		}
		return nil
	}
	seq.Splice(op.Index, 1, []value.Value{op.Value})
	return nil
}

func applySeqRemoveAt(target interface{}, op delta.Operation, desc descriptor.Descriptor, opts Options) error {
	seq := withWritableSequence(target, desc, op.MemberIndex)
	if op.Index < 0 || op.Index >= seq.Len() {
		if opts.StrictRange {
			return outOfRangeErr(op, op.MemberIndex, op.Index)
		}
		return nil
	}
	seq.Splice(op.Index, 1, nil)
	return nil
}

func applySeqNestedAt(target interface{}, op delta.Operation, desc descriptor.Descriptor, opts Options) error {
	seq := withWritableSequence(target, desc, op.MemberIndex)
	if op.Index < 0 || op.Index >= seq.Len() {
		if opts.StrictRange {
			return outOfRangeErr(op, op.MemberIndex, op.Index)
		}
		return nil
	}
	elem := seq.At(op.Index)
	rec, ok := elem.NestedRecord()
	if !ok || rec == nil {
		// §9(b): SeqNestedAt on a value-like element is a no-op.
		return nil
	}
	_, elemDesc := desc.ResolveType(elem)
	if elemDesc == nil {
		return nil
	}
	newRec, err := applyDocument(rec, op.Nested, elemDesc, Options{})
	if err != nil {
		return err
	}
	if newRec != rec {
		seq.Splice(op.Index, 1, []value.Value{value.NewNested(newRec)})
	}
	return nil
}

func applyDictSet(target interface{}, op delta.Operation, desc descriptor.Descriptor) {
	m := withWritableMap(target, desc, op.MemberIndex)
	m.Set(op.Key, op.Value)
}

func applyDictRemove(target interface{}, op delta.Operation, desc descriptor.Descriptor) {
	m := withWritableMap(target, desc, op.MemberIndex)
	m.Remove(op.Key)
}

func applyDictNested(target interface{}, op delta.Operation, desc descriptor.Descriptor) error {
	m := withWritableMap(target, desc, op.MemberIndex)
	cur, ok := m.Get(op.Key)
	if !ok {
		// key missing: do not create (§4.6)
		return nil
	}
	rec, ok := cur.NestedRecord()
	if !ok || rec == nil {
		return nil
	}
	_, elemDesc := desc.ResolveType(cur)
	if elemDesc == nil {
		return nil
	}
	newRec, err := applyDocument(rec, op.Nested, elemDesc, Options{})
	if err != nil {
		return err
	}
	if newRec != rec {
		m.Set(op.Key, value.NewNested(newRec))
	}
	return nil
}

// withWritableSequence returns a sequence adapter for member, cloning
// the read-only case into a writable materialized copy on each mutating
// operation, per §4.6 "Read-only containers". The clone is assigned back
// through desc.Set immediately since each adapter call only ever
// performs one splice; a read-only adapter that does not round-trip
// through Set between splices would silently lose the mutation, which
// is the descriptor author's contract to uphold, not this package's.
func withWritableSequence(target interface{}, desc descriptor.Descriptor, member int) descriptor.Sequence {
	seq := desc.Sequence(target, member)
	if !seq.ReadOnly() {
		return seq
	}
	clone := cloneSequence(seq)
	_ = desc.Set(target, member, sequenceValue(clone))
	return desc.Sequence(target, member)
}

func cloneSequence(s descriptor.Sequence) []value.Value {
	out := make([]value.Value, s.Len())
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}

func sequenceValue(elems []value.Value) value.Value {
	return value.NewList(elems)
}

func withWritableMap(target interface{}, desc descriptor.Descriptor, member int) descriptor.MapAdapter {
	m := desc.MapAdapter(target, member)
	if !m.ReadOnly() {
		return m
	}
	clone := value.NewMap()
	for _, k := range m.Keys() {
		if v, ok := m.Get(k); ok {
			clone.Set(k, v)
		}
	}
	_ = desc.Set(target, member, value.NewMapValue(clone))
	return desc.MapAdapter(target, member)
}
