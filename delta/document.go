package delta

// Document is an ordered, append-only operation stream (§3.2). A Document
// is considered immutable once it has been observed by apply or the
// codec — callers that need to keep building after that point should
// start a new Document rather than mutate a published one.
type Document struct {
	ops []Operation
}

// NewDocument returns an empty Document.
func NewDocument() *Document {
	return &Document{}
}

// IsEmpty reports whether d contains zero operations (I3). A ReplaceObject
// document is never considered empty since the writer always appends at
// least that one operation when it calls ReplaceObject.
func (d *Document) IsEmpty() bool {
	return d == nil || len(d.ops) == 0
}

// Len returns the number of top-level operations in d.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.ops)
}

// At returns the operation at position i. Callers enumerate with Reader
// rather than At in normal use; At exists for codec/test code that needs
// random access.
func (d *Document) At(i int) Operation {
	return d.ops[i]
}
