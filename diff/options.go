// Package diff implements the delta engine (C5 in the design): the
// algorithm that walks two object graphs through their descriptor.Descriptor
// and appends the minimal operation stream describing how to turn the
// left graph into the right one.
package diff

// Options carries the comparison tuning §4.4 consults during the walk.
// Per-member Policy overrides (descriptor.Policy) take precedence over
// these root-level defaults, matching §4.4's "order-insensitive default
// at root, per-member override".
//
// The doc-comment-per-field convention here follows the teacher's
// config.Config style (one sentence of purpose, one of default) even
// though this Options struct has no environment-variable backing — there
// is no server here to source configuration from (see DESIGN.md).
type Options struct {
	// OrderInsensitive is the root default for sequence members that
	// don't declare their own Policy.OrderInsensitive.
	// Default: false (positional diff).
	OrderInsensitive bool

	// StringCaseInsensitive compares strings ordinally case-insensitive
	// when a member's own Policy doesn't override it.
	// Default: false.
	StringCaseInsensitive bool

	// NaNEqual treats NaN == NaN for float comparisons when a member's
	// own Policy doesn't override it.
	// Default: false (NaN != NaN, matching IEEE 754).
	NaNEqual bool

	// FloatEpsilon/DoubleEpsilon/DecimalEpsilon bound the root-level
	// tolerance within which two numbers compare equal.
	// Default: 0 (exact comparison).
	FloatEpsilon   float64
	DoubleEpsilon  float64
	DecimalEpsilon float64

	// MaxDepth bounds recursion into nested records and nested
	// sequence/map elements, guarding against unbounded or accidentally
	// cyclic graphs when TrackCycles is off.
	// Default: 1000.
	MaxDepth int

	// TrackCycles enables the visited-pair map described in §4.4
	// "Cycle tracking" / §9. Disable it only when the caller can prove
	// the graph is acyclic, since MaxDepth is the only other backstop.
	// Default: false.
	TrackCycles bool

	// ValidateOnEmit only matters to ComputeFromTracker (§4.7
	// "validate-on-emit"): when set, every dirty-bit candidate is
	// re-checked with a full deep comparison before emission, and the
	// engine falls back to a full walk to also catch unmarked changes,
	// so the emitted document converges on exactly what Compute would
	// have produced (P6). When unset, the emitted document is the
	// unvalidated subset of members whose bits were popped.
	// Default: false.
	ValidateOnEmit bool
}

// DefaultOptions returns the zero-tolerance, positional-diff, depth-1000
// defaults §4.4 describes as the baseline behavior.
func DefaultOptions() Options {
	return Options{MaxDepth: 1000}
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return 1000
	}
	return o.MaxDepth
}
