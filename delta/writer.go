package delta

import "deltagraph/value"

// Writer appends operations to a Document. Appends are O(1) amortised
// (§4.2), backed by the same append-only slice growth the teacher uses
// for its own write path. A Writer is single-writer (§5): concurrent
// writes to the same Writer require external synchronization, but a
// frozen Document may be read by any number of concurrent Readers.
type Writer struct {
	doc *Document
}

// NewWriter returns a Writer appending into a fresh, empty Document.
func NewWriter() *Writer {
	return &Writer{doc: NewDocument()}
}

// Document returns the Document being built. The returned Document must
// be treated as immutable once the caller stops writing to w.
func (w *Writer) Document() *Document { return w.doc }

func (w *Writer) append(op Operation) {
	w.doc.ops = append(w.doc.ops, op)
}

// ReplaceObject appends a ReplaceObject operation. v may be the null
// value, signaling the target should become nil.
func (w *Writer) ReplaceObject(v value.Value) { w.append(replaceObject(v)) }

// SetMember appends a SetMember operation for the member at index m.
func (w *Writer) SetMember(m int, v value.Value) { w.append(setMember(m, v)) }

// NestedMember appends a NestedMember operation carrying sub as the
// member m's subdocument. Callers should not call this with an empty sub
// (see nested suppression, §4.5); the engine enforces that rule itself.
func (w *Writer) NestedMember(m int, sub *Document) { w.append(nestedMember(m, sub)) }

// SeqAddAt appends a SeqAddAt operation inserting v at index i of member m.
func (w *Writer) SeqAddAt(m, i int, v value.Value) { w.append(seqAddAt(m, i, v)) }

// SeqReplaceAt appends a SeqReplaceAt operation replacing index i of
// member m with v.
func (w *Writer) SeqReplaceAt(m, i int, v value.Value) { w.append(seqReplaceAt(m, i, v)) }

// SeqRemoveAt appends a SeqRemoveAt operation removing index i of member
// m. oldValue is advisory only (§3.1) and is not consulted by Apply.
func (w *Writer) SeqRemoveAt(m, i int, oldValue value.Value) {
	w.append(seqRemoveAt(m, i, oldValue))
}

// SeqNestedAt appends a SeqNestedAt operation applying sub to the element
// at index i of member m.
func (w *Writer) SeqNestedAt(m, i int, sub *Document) { w.append(seqNestedAt(m, i, sub)) }

// DictSet appends a DictSet operation setting key k to v in member m.
func (w *Writer) DictSet(m int, k, v value.Value) { w.append(dictSet(m, k, v)) }

// DictRemove appends a DictRemove operation removing key k from member m.
func (w *Writer) DictRemove(m int, k value.Value) { w.append(dictRemove(m, k)) }

// DictNested appends a DictNested operation applying sub to the value at
// key k in member m.
func (w *Writer) DictNested(m int, k value.Value, sub *Document) {
	w.append(dictNested(m, k, sub))
}
