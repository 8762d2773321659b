package diff

import (
	"fmt"
	"sort"

	"deltagraph/delta"
	"deltagraph/descriptor"
	"deltagraph/value"
)

// diffSequence implements §4.4 step 4. It dispatches on m.Policy to one
// of the three sequence diff strategies: whole-replacement "array/
// read-only block", ordered positional diff, or unordered keyed
// multiset.
func diffSequence(ctx *context, w *delta.Writer, m descriptor.Member, l, r descriptor.Sequence, member int, desc descriptor.Descriptor) {
	if m.Policy.ArrayWholeReplace {
		if sequenceContentEqual(ctx, l, r, m) {
			return
		}
		w.SetMember(member, sequenceToValue(r))
		return
	}

	// §4.4 "order-insensitive default at root, per-member override": a
	// member that doesn't declare its own Policy.OrderInsensitive falls
	// back to the root Options default, the same p||opts pattern
	// valuesEqual uses for its other per-member-overridable options.
	if m.Policy.OrderInsensitive || ctx.opts.OrderInsensitive {
		diffKeyedMultiset(ctx, w, m, l, r, member, desc)
		return
	}
	diffPositional(ctx, w, m, l, r, member, desc)
}

func sequenceContentEqual(ctx *context, l, r descriptor.Sequence, m descriptor.Member) bool {
	if l.Len() != r.Len() {
		return false
	}
	for i := 0; i < l.Len(); i++ {
		if !valuesEqual(l.At(i), r.At(i), m.Policy, ctx.opts) {
			return false
		}
	}
	return true
}

func sequenceToValue(s descriptor.Sequence) value.Value {
	elems := make([]value.Value, s.Len())
	for i := range elems {
		elems[i] = s.At(i)
	}
	return value.NewList(elems)
}

// diffPositional implements the "Positional list (ordered)" strategy:
// trim the equal prefix/suffix, then pair the remaining middle positions.
func diffPositional(ctx *context, w *delta.Writer, m descriptor.Member, l, r descriptor.Sequence, member int, desc descriptor.Descriptor) {
	ln, rn := l.Len(), r.Len()

	prefix := 0
	for prefix < ln && prefix < rn && valuesEqual(l.At(prefix), r.At(prefix), m.Policy, ctx.opts) {
		prefix++
	}

	suffix := 0
	for suffix < ln-prefix && suffix < rn-prefix &&
		valuesEqual(l.At(ln-1-suffix), r.At(rn-1-suffix), m.Policy, ctx.opts) {
		suffix++
	}

	leftMid := ln - prefix - suffix
	rightMid := rn - prefix - suffix
	overlap := leftMid
	if rightMid < overlap {
		overlap = rightMid
	}

	for i := 0; i < overlap; i++ {
		pos := prefix + i
		lv, rv := l.At(pos), r.At(pos)
		if valuesEqual(lv, rv, m.Policy, ctx.opts) {
			continue
		}
		if emitNestedIfSameType(ctx, w, m, member, pos, lv, rv, desc) {
			continue
		}
		w.SeqReplaceAt(member, pos, rv)
	}

	switch {
	case leftMid > rightMid:
		// Surplus on the left: remove the tail of the middle range in
		// strictly descending index order (P7) so earlier indices stay
		// valid as each removal is applied.
		for i := ln - suffix - 1; i >= prefix+overlap; i-- {
			w.SeqRemoveAt(member, i, l.At(i))
		}
	case rightMid > leftMid:
		// Surplus on the right: add in strictly ascending index order
		// (P7), each index referring to the target sequence as it grows.
		for i := prefix + overlap; i < rn-suffix; i++ {
			w.SeqAddAt(member, i, r.At(i))
		}
	}
}

// emitNestedIfSameType implements "For positions where both sides hold a
// nested record of identical runtime type, prefer SeqNestedAt(i, S) with
// a non-empty nested S." It reports whether it emitted anything (or
// correctly emitted nothing because the nested diff turned out empty —
// either way, the caller must not also emit a SeqReplaceAt).
func emitNestedIfSameType(ctx *context, w *delta.Writer, m descriptor.Member, member, pos int, lv, rv value.Value, desc descriptor.Descriptor) bool {
	if lv.Kind() != value.KindNested || rv.Kind() != value.KindNested {
		return false
	}
	lRec, _ := lv.NestedRecord()
	rRec, _ := rv.NestedRecord()
	if lRec == nil || rRec == nil {
		return false
	}

	lType, lDesc := desc.ResolveType(lv)
	rType, _ := desc.ResolveType(rv)
	if lType == "" || lType != rType || lDesc == nil {
		return false
	}

	sub := computeNested(ctx, lRec, rRec, lDesc)
	if !sub.IsEmpty() {
		w.SeqNestedAt(member, pos, sub)
	}
	return true
}

// diffKeyedMultiset implements §4.4's "Keyed multiset (unordered, with
// key_members)" strategy.
func diffKeyedMultiset(ctx *context, w *delta.Writer, m descriptor.Member, l, r descriptor.Sequence, member int, desc descriptor.Descriptor) {
	lKeys := make([]string, l.Len())
	for i := 0; i < l.Len(); i++ {
		lKeys[i] = multisetKey(l.At(i), m.Policy.KeyMembers, desc)
	}
	rKeys := make([]string, r.Len())
	for i := 0; i < r.Len(); i++ {
		rKeys[i] = multisetKey(r.At(i), m.Policy.KeyMembers, desc)
	}

	if multisetsDeepEqual(ctx, m, l, lKeys, r, rKeys) {
		return
	}

	// first-occurrence index per key, each side
	lByKey := firstOccurrenceIndex(lKeys)
	rByKey := firstOccurrenceIndex(rKeys)

	var toRemove []int // left indices, emitted descending
	var toAdd []int     // right indices, emitted ascending
	type nestedPair struct {
		pos        int
		lv, rv     value.Value
	}
	var toNest []nestedPair

	for key, li := range lByKey {
		ri, ok := rByKey[key]
		if !ok {
			toRemove = append(toRemove, li)
			continue
		}
		lv, rv := l.At(li), r.At(ri)
		if valuesEqual(lv, rv, m.Policy, ctx.opts) {
			continue
		}
		toNest = append(toNest, nestedPair{pos: li, lv: lv, rv: rv})
	}
	for key, ri := range rByKey {
		if _, ok := lByKey[key]; !ok {
			toAdd = append(toAdd, ri)
		}
	}

	sort.Slice(toNest, func(i, j int) bool { return toNest[i].pos < toNest[j].pos })
	for _, np := range toNest {
		lRec, _ := np.lv.NestedRecord()
		rRec, _ := np.rv.NestedRecord()
		_, lDesc := desc.ResolveType(np.lv)
		if lDesc == nil {
			w.SeqReplaceAt(member, np.pos, np.rv)
			continue
		}
		sub := computeNested(ctx, lRec, rRec, lDesc)
		if !sub.IsEmpty() {
			w.SeqNestedAt(member, np.pos, sub)
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(toRemove)))
	for _, li := range toRemove {
		w.SeqRemoveAt(member, li, l.At(li))
	}

	sort.Ints(toAdd)
	for _, ri := range toAdd {
		w.SeqAddAt(member, ri, r.At(ri))
	}
}

func multisetsDeepEqual(ctx *context, m descriptor.Member, l descriptor.Sequence, lKeys []string, r descriptor.Sequence, rKeys []string) bool {
	if l.Len() != r.Len() {
		return false
	}
	lCount := make(map[string]int)
	for _, k := range lKeys {
		lCount[k]++
	}
	rCount := make(map[string]int)
	for _, k := range rKeys {
		rCount[k]++
	}
	if len(lCount) != len(rCount) {
		return false
	}
	for k, n := range lCount {
		if rCount[k] != n {
			return false
		}
	}
	for i := 0; i < l.Len(); i++ {
		matched := false
		for j := 0; j < r.Len(); j++ {
			if lKeys[i] == rKeys[j] && valuesEqual(l.At(i), r.At(j), m.Policy, ctx.opts) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// firstOccurrenceIndex returns, for each distinct key, the index of its
// first occurrence (§4.4 "Ties break by first occurrence").
func firstOccurrenceIndex(keys []string) map[string]int {
	out := make(map[string]int, len(keys))
	for i, k := range keys {
		if _, ok := out[k]; !ok {
			out[k] = i
		}
	}
	return out
}

// multisetKey computes the pairing key for one element: the tuple of
// named key members if keyMembers is non-empty, or the element's own
// value representation when it is value-like.
func multisetKey(elem value.Value, keyMembers []string, desc descriptor.Descriptor) string {
	if len(keyMembers) == 0 {
		return valueKeyString(elem)
	}
	rec, ok := elem.NestedRecord()
	if !ok {
		return valueKeyString(elem)
	}
	_, elemDesc := desc.ResolveType(elem)
	if elemDesc == nil {
		return valueKeyString(elem)
	}
	byName := make(map[string]int, len(elemDesc.Members()))
	for _, member := range elemDesc.Members() {
		byName[member.Name] = member.StableIndex
	}
	key := ""
	for i, name := range keyMembers {
		if i > 0 {
			key += "\x1f"
		}
		if idx, ok := byName[name]; ok {
			key += valueKeyString(elemDesc.Get(rec, idx))
		}
	}
	return key
}

// valueKeyString gives a stable, collision-resistant-enough string
// representation of a value-like Value for use as a multiset pairing
// key. It is not used for wire output, only as a same-process map key.
func valueKeyString(v value.Value) string {
	switch v.Kind() {
	case value.KindString:
		return "s:" + v.AsString()
	case value.KindInt8, value.KindInt16, value.KindInt32, value.KindInt64:
		return fmt.Sprintf("i:%d", v.AsInt64())
	case value.KindUint8, value.KindUint16, value.KindUint32, value.KindUint64:
		return fmt.Sprintf("u:%d", v.AsUint64())
	case value.KindBool:
		return fmt.Sprintf("b:%v", v.AsBool())
	case value.KindGUID:
		return "g:" + v.AsGUID().String()
	case value.KindFloat32:
		return fmt.Sprintf("f32:%v", v.AsFloat32())
	case value.KindFloat64:
		return fmt.Sprintf("f64:%v", v.AsFloat64())
	case value.KindNull:
		return "null"
	default:
		return fmt.Sprintf("k%d", v.Kind())
	}
}
