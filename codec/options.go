// Package codec implements the binary wire format (C8 in the design):
// encoding a delta.Document to bytes and decoding it back, in either
// headerless or headered framing, following the teacher's
// storage/binary package for header layout and defensive decode limits.
package codec

// Options tunes both encode and decode. The doc-comment-per-field
// convention follows the teacher's config.Config "Default:" style.
type Options struct {
	// Headered selects framing: true emits/expects the magic+version+
	// flags+fingerprint header and optional interning tables; false is
	// the bare operation stream.
	// Default: false.
	Headered bool

	// StringTable enables the string interning table in headered mode.
	// Ignored when Headered is false.
	// Default: false.
	StringTable bool

	// TypeTable enables the type/enum-identifier interning table in
	// headered mode. Ignored when Headered is false.
	// Default: false.
	TypeTable bool

	// EnumIdentity encodes enum values with their originating type
	// identifier (tag 21) rather than degrading to the bare underlying
	// primitive (tag 22).
	// Default: false.
	EnumIdentity bool

	// Fingerprint is the eight-byte stable type fingerprint stamped into
	// a headered encode and checked (non-fatally logged, not enforced)
	// on decode. Callers that care about cross-type confusion should
	// compare it themselves; see Fingerprint().
	Fingerprint [8]byte

	// MaxOps bounds the total number of operations decoded across all
	// nesting levels combined. Zero means unbounded.
	// Default: 0.
	MaxOps int

	// MaxNesting bounds recursion depth into nested documents.
	// Zero means unbounded.
	// Default: 0.
	MaxNesting int

	// MaxStringBytes bounds the byte length of any single decoded
	// string (inline or interned-table entry). Zero means unbounded.
	// Default: 0.
	MaxStringBytes int

	// MaxListLen bounds the element count of any single decoded
	// object array, list, or map. Zero means unbounded.
	// Default: 0.
	MaxListLen int
}

// DefaultOptions returns the permissive headerless baseline; callers
// decoding untrusted input should set the Max* caps explicitly.
func DefaultOptions() Options {
	return Options{}
}
