package codec

import (
	"deltagraph/delta"
	"deltagraph/value"
)

// Encode serializes doc to its binary wire form. In headerless mode
// (opts.Headered == false) the output is just the operation stream; in
// headered mode it is prefixed by a Header and, when enabled, the
// string/type interning tables built from every string and enum type
// identifier doc transitively carries (§4.8, §5 "scoped per call").
//
// Encode returns ErrNestedValueNotWireRepresentable when any operation's
// key or value is a bare KindNested record: the wire format carries
// records only as a Document in an operation's Nested field. Documents
// built by package diff contain such values whenever a whole record is
// emitted as a payload (ReplaceObject, a SetMember of a nested-record
// member, or a SeqAddAt/SeqRemoveAt/SeqReplaceAt/DictSet of a record
// element), and Encode does not encode those documents.
func Encode(doc *delta.Document, opts Options) ([]byte, error) {
	ctx := &encodeCtx{opts: opts}
	if opts.Headered && opts.StringTable {
		ctx.strings = newStringTable()
	}
	if opts.Headered && opts.TypeTable {
		ctx.types = newTypeTable()
	}
	if ctx.strings != nil || ctx.types != nil {
		collectDocument(doc, ctx)
	}

	var out []byte
	if opts.Headered {
		flags := byte(0)
		if opts.StringTable {
			flags |= FlagStringTable
		}
		if opts.TypeTable {
			flags |= FlagTypeTable
		}
		if opts.EnumIdentity {
			flags |= FlagEnumIdentity
		}
		out = writeHeader(out, Header{Magic: Magic, Version: Version, Flags: flags, Fingerprint: opts.Fingerprint})
		if ctx.strings != nil {
			out = ctx.strings.encode(out)
		}
		if ctx.types != nil {
			out = ctx.types.encode(out)
		}
	}

	return encodeDocument(out, doc, ctx)
}

func encodeDocument(buf []byte, doc *delta.Document, ctx *encodeCtx) ([]byte, error) {
	ops := delta.All(doc)
	buf = putUvarint(buf, uint64(len(ops)))
	var err error
	for _, op := range ops {
		buf, err = encodeOperation(buf, op, ctx)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func encodeOperation(buf []byte, op delta.Operation, ctx *encodeCtx) ([]byte, error) {
	buf = append(buf, byte(op.Kind))
	var err error
	switch op.Kind {
	case delta.ReplaceObject:
		buf, err = encodeValue(buf, op.Value, ctx)
	case delta.SetMember:
		buf = putVarint(buf, int64(op.MemberIndex))
		buf, err = encodeValue(buf, op.Value, ctx)
	case delta.NestedMember:
		buf = putVarint(buf, int64(op.MemberIndex))
		buf, err = encodeDocument(buf, op.Nested, ctx)
	case delta.SeqAddAt, delta.SeqReplaceAt, delta.SeqRemoveAt:
		buf = putVarint(buf, int64(op.MemberIndex))
		buf = putVarint(buf, int64(op.Index))
		buf, err = encodeValue(buf, op.Value, ctx)
	case delta.SeqNestedAt:
		buf = putVarint(buf, int64(op.MemberIndex))
		buf = putVarint(buf, int64(op.Index))
		buf, err = encodeDocument(buf, op.Nested, ctx)
	case delta.DictSet:
		buf = putVarint(buf, int64(op.MemberIndex))
		buf, err = encodeValue(buf, op.Key, ctx)
		if err != nil {
			return nil, err
		}
		buf, err = encodeValue(buf, op.Value, ctx)
	case delta.DictRemove:
		buf = putVarint(buf, int64(op.MemberIndex))
		buf, err = encodeValue(buf, op.Key, ctx)
	case delta.DictNested:
		buf = putVarint(buf, int64(op.MemberIndex))
		buf, err = encodeValue(buf, op.Key, ctx)
		if err != nil {
			return nil, err
		}
		buf, err = encodeDocument(buf, op.Nested, ctx)
	}
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// collectDocument walks doc (and every nested subdocument) once, interning
// every string and enum type identifier it carries so the tables are
// complete before a single byte of the operation stream is written.
func collectDocument(doc *delta.Document, ctx *encodeCtx) {
	for _, op := range delta.All(doc) {
		collectValue(op.Key, ctx)
		collectValue(op.Value, ctx)
		if op.Nested != nil {
			collectDocument(op.Nested, ctx)
		}
	}
}

func collectValue(v value.Value, ctx *encodeCtx) {
	switch v.Kind() {
	case value.KindString:
		if ctx.strings != nil {
			ctx.strings.intern(v.AsString())
		}
	case value.KindEnum:
		e := v.AsEnum()
		if e.HasType && ctx.types != nil {
			ctx.types.intern(e.TypeID)
		}
	case value.KindObjectArray, value.KindList:
		for _, e := range v.AsSlice() {
			collectValue(e, ctx)
		}
	case value.KindMap:
		v.AsMap().Each(func(k, val value.Value) {
			collectValue(k, ctx)
			collectValue(val, ctx)
		})
	}
}
