package diff

import (
	"deltagraph/delta"
	"deltagraph/descriptor"
	"deltagraph/logger"
	"deltagraph/value"
)

// Options.ValidateOnEmit (options.go) is consulted only by
// ComputeFromTracker below, since it only makes sense in the context of
// a dirty tracker — see §4.7.

// context carries the per-call state a Compute invocation threads through
// its recursion: the options in effect, the recursion budget remaining,
// and (when enabled) the cycle-tracking map. It is never shared across
// calls (§5 "pure per call").
type context struct {
	opts    Options
	cycles  *cycleTracker
	depth   int
	subsys  string
}

func newContext(opts Options) *context {
	c := &context{opts: opts, subsys: "engine"}
	if opts.TrackCycles {
		c.cycles = newCycleTracker()
	}
	return c
}

// Compute returns the minimal delta.Document describing how to turn left
// into right, per §4.4. A nil Descriptor is only valid when both left and
// right are nil or one is nil (the pure root-replacement case); any
// per-member walk requires a non-nil Descriptor for the root type.
func Compute(left, right interface{}, desc descriptor.Descriptor, opts Options) *delta.Document {
	w := delta.NewWriter()
	ctx := newContext(opts)
	computeRoot(ctx, w, left, right, desc)
	return w.Document()
}

// ComputeFromTracker behaves like Compute but, when desc exposes a
// Tracker for left, enumerates only the members whose dirty bits were
// set rather than walking every member (§4.7). When opts.ValidateOnEmit
// is set, each dirty-bit candidate is additionally confirmed by deep
// comparison before being emitted, and the result is extended with any
// other member whose value actually changed but whose bit was never
// marked — i.e. the emitted document converges on exactly Compute's
// output (P6).
func ComputeFromTracker(left, right interface{}, desc descriptor.Descriptor, opts Options) *delta.Document {
	w := delta.NewWriter()
	ctx := newContext(opts)

	tracker := desc.Tracker(left)
	if tracker == nil || !tracker.HasAnyDirty() {
		if tracker == nil {
			computeRoot(ctx, w, left, right, desc)
			return w.Document()
		}
		// Tracker present but nothing marked: nothing to emit unless
		// validate-on-emit demands the full walk anyway.
		if !opts.ValidateOnEmit {
			return w.Document()
		}
		computeRoot(ctx, w, left, right, desc)
		return w.Document()
	}

	if left == nil || right == nil {
		computeRoot(ctx, w, left, right, desc)
		return w.Document()
	}

	members := desc.Members()
	byIndex := make(map[int]descriptor.Member, len(members))
	for _, m := range members {
		byIndex[m.StableIndex] = m
	}

	if opts.ValidateOnEmit {
		logger.TraceIf("engine", "validate-on-emit: falling back to full walk to catch unmarked changes")
		computeRoot(ctx, w, left, right, desc)
		return w.Document()
	}

	for {
		bit, ok := tracker.PopNextDirty()
		if !ok {
			break
		}
		m, known := byIndex[bit]
		if !known {
			continue
		}
		logger.TraceIf("engine", "dirty bit %d -> member %s", bit, m.Name)
		diffMember(ctx, w, m, left, right, desc)
	}
	return w.Document()
}

func computeRoot(ctx *context, w *delta.Writer, left, right interface{}, desc descriptor.Descriptor) {
	if left == nil && right == nil {
		return
	}
	if left == nil || right == nil {
		w.ReplaceObject(value.NewNested(right))
		return
	}

	if ctx.cycles != nil {
		revisit, mismatch := ctx.cycles.enter(left, right)
		if mismatch {
			logger.Warn("diff: cycle tracker found a structural mismatch re-entering at the root pair")
		}
		if revisit {
			return
		}
	}

	for _, m := range desc.Members() {
		diffMember(ctx, w, m, left, right, desc)
	}
}

// diffMember implements the per-kind dispatch of §4.4's "Per-member
// diff" for a single member of a record with descriptor desc.
func diffMember(ctx *context, w *delta.Writer, m descriptor.Member, left, right interface{}, desc descriptor.Descriptor) {
	if m.Policy.DeltaSkip {
		return
	}

	// §4.4 step 2 applies ahead of and independently of the per-kind
	// dispatch below: delta_shallow always emits a single whole-value
	// SetMember, even for a sequence or map member.
	if m.Policy.DeltaShallow {
		lv := wholeMemberValue(left, m, desc)
		rv := wholeMemberValue(right, m, desc)
		if valuesEqual(lv, rv, m.Policy, ctx.opts) {
			return
		}
		w.SetMember(m.StableIndex, rv)
		return
	}

	switch m.Kind {
	case descriptor.KindSequence:
		diffSequence(ctx, w, m, desc.Sequence(left, m.StableIndex), desc.Sequence(right, m.StableIndex), m.StableIndex, desc)
		return
	case descriptor.KindMap:
		diffMap(ctx, w, m, desc.MapAdapter(left, m.StableIndex), desc.MapAdapter(right, m.StableIndex), m.StableIndex, desc)
		return
	}

	lv := desc.Get(left, m.StableIndex)
	rv := desc.Get(right, m.StableIndex)

	if valuesEqual(lv, rv, m.Policy, ctx.opts) {
		return
	}

	switch m.Kind {
	case descriptor.KindScalar, descriptor.KindString, descriptor.KindEnum, descriptor.KindShallowOpaque:
		w.SetMember(m.StableIndex, rv)

	case descriptor.KindNestedRecord:
		diffNestedMember(ctx, w, m, lv, rv, desc)

	case descriptor.KindPolymorphic:
		diffPolymorphicMember(ctx, w, m, lv, rv, desc)

	default:
		// Unknown/unsupported kind at this layer: fall back to whole
		// replacement rather than silently dropping a real change.
		w.SetMember(m.StableIndex, rv)
	}
}

// wholeMemberValue reads member m of instance as a single Value regardless
// of kind, going through the Sequence/MapAdapter adapters for those two
// kinds (desc.Get is only wired for the other kinds in most descriptors,
// §4.3) so delta_shallow can compare and emit a whole-value SetMember for
// any member kind.
func wholeMemberValue(instance interface{}, m descriptor.Member, desc descriptor.Descriptor) value.Value {
	switch m.Kind {
	case descriptor.KindSequence:
		return sequenceToValue(desc.Sequence(instance, m.StableIndex))
	case descriptor.KindMap:
		return mapToValue(desc.MapAdapter(instance, m.StableIndex))
	default:
		return desc.Get(instance, m.StableIndex)
	}
}

func diffNestedMember(ctx *context, w *delta.Writer, m descriptor.Member, lv, rv value.Value, desc descriptor.Descriptor) {
	if lv.IsNull() != rv.IsNull() {
		w.SetMember(m.StableIndex, rv)
		return
	}
	if lv.IsNull() && rv.IsNull() {
		return
	}

	lRec, _ := lv.NestedRecord()
	rRec, _ := rv.NestedRecord()

	lType, lDesc := desc.ResolveType(lv)
	rType, _ := desc.ResolveType(rv)
	if lType != rType {
		w.SetMember(m.StableIndex, rv)
		return
	}
	if lDesc == nil {
		// No nested descriptor available: treat as an opaque leaf.
		w.SetMember(m.StableIndex, rv)
		return
	}

	if ctx.depth+1 > ctx.opts.maxDepth() {
		logger.Warn("max nesting depth exceeded at member %s, replacing whole value", m.Name)
		w.SetMember(m.StableIndex, rv)
		return
	}

	sub := computeNested(ctx, lRec, rRec, lDesc)
	if sub.IsEmpty() {
		return
	}
	w.NestedMember(m.StableIndex, sub)
}

func diffPolymorphicMember(ctx *context, w *delta.Writer, m descriptor.Member, lv, rv value.Value, desc descriptor.Descriptor) {
	diffNestedMember(ctx, w, m, lv, rv, desc)
}

// computeNested runs the per-member walk into a fresh subdocument,
// returning it (possibly empty, per §4.5 nested suppression — the caller
// decides whether to emit it).
func computeNested(ctx *context, left, right interface{}, desc descriptor.Descriptor) *delta.Document {
	sub := delta.NewWriter()
	child := &context{opts: ctx.opts, cycles: ctx.cycles, depth: ctx.depth + 1, subsys: ctx.subsys}

	if left == nil && right == nil {
		return sub.Document()
	}
	if left == nil || right == nil {
		sub.ReplaceObject(value.NewNested(right))
		return sub.Document()
	}

	if child.depth > ctx.opts.maxDepth() {
		logger.Warn("max nesting depth exceeded at depth %d, replacing whole value", child.depth)
		sub.ReplaceObject(value.NewNested(right))
		return sub.Document()
	}

	if child.cycles != nil {
		revisit, mismatch := child.cycles.enter(left, right)
		if mismatch {
			logger.Warn("diff: cycle tracker found a structural mismatch re-entering at depth %d", child.depth)
		}
		if revisit {
			return sub.Document()
		}
	}

	for _, m := range desc.Members() {
		diffMember(child, sub, m, left, right, desc)
	}
	return sub.Document()
}

// valuesEqual implements the deep-equal-under-options check used by step
// 1 of §4.4's per-member diff, honoring per-member Policy overrides of
// the root Options.
func valuesEqual(l, r value.Value, p descriptor.Policy, opts Options) bool {
	if l.Kind() != r.Kind() {
		return false
	}
	switch l.Kind() {
	case value.KindString:
		ls, rs := l.AsString(), r.AsString()
		if p.StringCaseInsensitive || opts.StringCaseInsensitive {
			return equalFoldASCII(ls, rs)
		}
		return ls == rs
	case value.KindFloat32:
		return floatsEqual(float64(l.AsFloat32()), float64(r.AsFloat32()), epsilon(p.FloatEpsilon, opts.FloatEpsilon), p.NaNEqual || opts.NaNEqual)
	case value.KindFloat64:
		return floatsEqual(l.AsFloat64(), r.AsFloat64(), epsilon(p.DoubleEpsilon, opts.DoubleEpsilon), p.NaNEqual || opts.NaNEqual)
	case value.KindDecimal:
		return decimalsEqual(l.AsDecimal(), r.AsDecimal(), epsilon(p.DecimalEpsilon, opts.DecimalEpsilon))
	case value.KindBytes:
		return bytesEqual(l.AsBytes(), r.AsBytes())
	default:
		return value.DeepEqual(l, r)
	}
}

func epsilon(memberLevel, rootLevel float64) float64 {
	if memberLevel != 0 {
		return memberLevel
	}
	return rootLevel
}

func floatsEqual(a, b, eps float64, nanEqual bool) bool {
	if a != a && b != b {
		return nanEqual
	}
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
