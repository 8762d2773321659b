package diff

import (
	"sort"

	"deltagraph/delta"
	"deltagraph/descriptor"
	"deltagraph/value"
)

// diffMap implements §4.4 step 5: left-only keys are removed, right-only
// keys are added, and keys present on both sides are compared (recursing
// into a nested diff when both values resolve to the same concrete type,
// otherwise a whole-value DictSet). Emission is grouped: all DictRemoves,
// then the DictSet/DictNested ops for changed keys, then the DictSets for
// added keys, each group sorted by key (§9(c)), so the same two maps
// always produce the same operation order regardless of the adapter's
// native iteration order.
func diffMap(ctx *context, w *delta.Writer, m descriptor.Member, l, r descriptor.MapAdapter, member int, desc descriptor.Descriptor) {
	lKeys := l.Keys()
	rKeys := r.Keys()

	type keyed struct {
		sortKey string
		key     value.Value
	}

	lIndex := make(map[string]value.Value, len(lKeys))
	for _, k := range lKeys {
		lIndex[valueKeyString(k)] = k
	}
	rIndex := make(map[string]value.Value, len(rKeys))
	for _, k := range rKeys {
		rIndex[valueKeyString(k)] = k
	}

	var removed, nestedOrSet, added []keyed

	for sk, k := range lIndex {
		if _, ok := rIndex[sk]; !ok {
			removed = append(removed, keyed{sk, k})
		}
	}
	for sk, k := range rIndex {
		if _, ok := lIndex[sk]; !ok {
			added = append(added, keyed{sk, k})
		} else {
			nestedOrSet = append(nestedOrSet, keyed{sk, k})
		}
	}

	sort.Slice(removed, func(i, j int) bool { return removed[i].sortKey < removed[j].sortKey })
	sort.Slice(added, func(i, j int) bool { return added[i].sortKey < added[j].sortKey })
	sort.Slice(nestedOrSet, func(i, j int) bool { return nestedOrSet[i].sortKey < nestedOrSet[j].sortKey })

	for _, e := range removed {
		w.DictRemove(member, e.key)
	}

	for _, e := range nestedOrSet {
		lv, _ := l.Get(e.key)
		rv, _ := r.Get(e.key)
		if valuesEqual(lv, rv, m.Policy, ctx.opts) {
			continue
		}
		if diffMapValue(ctx, w, member, e.key, lv, rv, desc) {
			continue
		}
		w.DictSet(member, e.key, rv)
	}

	for _, e := range added {
		v, _ := r.Get(e.key)
		w.DictSet(member, e.key, v)
	}
}

// mapToValue materializes a MapAdapter's full contents as a value.Value,
// for delta_shallow's whole-value comparison/emission (§4.4 step 2).
func mapToValue(m descriptor.MapAdapter) value.Value {
	out := value.NewMap()
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		out.Set(k, v)
	}
	return value.NewMapValue(out)
}

// diffMapValue tries the nested-record path for a changed map entry: if
// both values resolve to the same concrete type via the parent
// descriptor, it recurses and emits a DictNested instead of a whole-value
// DictSet, suppressing the emission entirely when the nested diff is
// empty. Reports whether it handled the entry (even as a no-op).
func diffMapValue(ctx *context, w *delta.Writer, member int, key value.Value, lv, rv value.Value, desc descriptor.Descriptor) bool {
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
		w.DictNested(member, key, sub)
	}
	return true
}
