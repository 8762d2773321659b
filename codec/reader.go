package codec

import (
	"encoding/binary"

	"deltagraph/delta"
	"deltagraph/logger"
)

// Decode parses data into a Document according to opts.Headered. When
// Headered is true, data must begin with a valid Header (magic, version,
// and, per the header's own flag bits, interning tables) regardless of
// what opts.StringTable/TypeTable say — the flags actually present on
// the wire govern, not the caller's request. When Headered is false,
// data is treated as a bare operation stream, but a stream that actually
// begins with the headered magic is still rejected as InvalidHeader
// rather than misparsed as an operation stream (§7 P8, both directions).
func Decode(data []byte, opts Options) (*delta.Document, error) {
	if !opts.Headered && looksHeadered(data) {
		return nil, newErr(KindInvalidHeader, 0, "headerless decode given headered input", ErrInvalidHeader)
	}

	ctx := &decodeCtx{opts: opts}
	rest := data
	offset := 0
	if opts.Headered {
		h, tail, err := readHeader(data)
		if err != nil {
			return nil, err
		}
		if h.Fingerprint != opts.Fingerprint {
			logger.Debug("codec: header fingerprint %x differs from expected %x", h.Fingerprint, opts.Fingerprint)
		}
		rest = tail
		offset = headerSize
		if h.hasStringTable() {
			strs, n, err := decodeStringTable(rest, 0, opts)
			if err != nil {
				return nil, reoffset(err, offset)
			}
			ctx.strings = strs
			rest = rest[n:]
			offset += n
		}
		if h.hasTypeTable() {
			types, n, err := decodeTypeTable(rest, 0, opts)
			if err != nil {
				return nil, reoffset(err, offset)
			}
			ctx.types = types
			rest = rest[n:]
			offset += n
		}
	}
	doc, _, err := decodeDocument(rest, 0, ctx)
	if err != nil {
		return nil, reoffset(err, offset)
	}
	return doc, nil
}

// reoffset rewrites a *Error's Offset to be relative to the start of data
// rather than the start of the table/stream segment it was decoded from,
// so every error this package returns carries a whole-message byte offset
// (§7).
func reoffset(err error, base int) error {
	if e, ok := err.(*Error); ok {
		e.Offset += base
		return e
	}
	return err
}

func decodeDocument(data []byte, offset int, ctx *decodeCtx) (*delta.Document, int, error) {
	ctx.depth++
	defer func() { ctx.depth-- }()
	if err := ctx.checkDepth(offset); err != nil {
		return nil, 0, err
	}

	count, n, err := readUvarint(data, offset)
	if err != nil {
		return nil, 0, err
	}
	pos := offset + n

	ctx.totalOps += int(count)
	if ctx.opts.MaxOps > 0 && ctx.totalOps > ctx.opts.MaxOps {
		return nil, 0, newErr(KindBoundExceeded, pos, "operation count", ErrBoundExceeded)
	}

	w := delta.NewWriter()
	for i := uint64(0); i < count; i++ {
		adv, err := decodeOperation(data, pos, ctx, w)
		if err != nil {
			return nil, 0, err
		}
		pos += adv
	}
	return w.Document(), pos - offset, nil
}

func decodeOperation(data []byte, offset int, ctx *decodeCtx, w *delta.Writer) (int, error) {
	if offset >= len(data) {
		return 0, newErr(KindTruncated, offset, "operation kind", ErrTruncated)
	}
	kind := delta.Kind(data[offset])
	pos := offset + 1

	switch kind {
	case delta.ReplaceObject:
		v, adv, err := decodeValue(data, pos, ctx)
		if err != nil {
			return 0, err
		}
		w.ReplaceObject(v)
		return (pos + adv) - offset, nil

	case delta.SetMember:
		member, adv, err := readVarint(data, pos)
		if err != nil {
			return 0, err
		}
		pos += adv
		v, adv, err := decodeValue(data, pos, ctx)
		if err != nil {
			return 0, err
		}
		w.SetMember(int(member), v)
		return (pos + adv) - offset, nil

	case delta.NestedMember:
		member, adv, err := readVarint(data, pos)
		if err != nil {
			return 0, err
		}
		pos += adv
		sub, adv, err := decodeDocument(data, pos, ctx)
		if err != nil {
			return 0, err
		}
		w.NestedMember(int(member), sub)
		return (pos + adv) - offset, nil

	case delta.SeqAddAt, delta.SeqReplaceAt, delta.SeqRemoveAt:
		member, adv, err := readVarint(data, pos)
		if err != nil {
			return 0, err
		}
		pos += adv
		index, adv, err := readVarint(data, pos)
		if err != nil {
			return 0, err
		}
		pos += adv
		v, adv, err := decodeValue(data, pos, ctx)
		if err != nil {
			return 0, err
		}
		pos += adv
		switch kind {
		case delta.SeqAddAt:
			w.SeqAddAt(int(member), int(index), v)
		case delta.SeqReplaceAt:
			w.SeqReplaceAt(int(member), int(index), v)
		case delta.SeqRemoveAt:
			w.SeqRemoveAt(int(member), int(index), v)
		}
		return pos - offset, nil

	case delta.SeqNestedAt:
		member, adv, err := readVarint(data, pos)
		if err != nil {
			return 0, err
		}
		pos += adv
		index, adv, err := readVarint(data, pos)
		if err != nil {
			return 0, err
		}
		pos += adv
		sub, adv, err := decodeDocument(data, pos, ctx)
		if err != nil {
			return 0, err
		}
		w.SeqNestedAt(int(member), int(index), sub)
		return (pos + adv) - offset, nil

	case delta.DictSet:
		member, adv, err := readVarint(data, pos)
		if err != nil {
			return 0, err
		}
		pos += adv
		k, adv, err := decodeValue(data, pos, ctx)
		if err != nil {
			return 0, err
		}
		pos += adv
		v, adv, err := decodeValue(data, pos, ctx)
		if err != nil {
			return 0, err
		}
		pos += adv
		w.DictSet(int(member), k, v)
		return pos - offset, nil

	case delta.DictRemove:
		member, adv, err := readVarint(data, pos)
		if err != nil {
			return 0, err
		}
		pos += adv
		k, adv, err := decodeValue(data, pos, ctx)
		if err != nil {
			return 0, err
		}
		w.DictRemove(int(member), k)
		return (pos + adv) - offset, nil

	case delta.DictNested:
		member, adv, err := readVarint(data, pos)
		if err != nil {
			return 0, err
		}
		pos += adv
		k, adv, err := decodeValue(data, pos, ctx)
		if err != nil {
			return 0, err
		}
		pos += adv
		sub, adv, err := decodeDocument(data, pos, ctx)
		if err != nil {
			return 0, err
		}
		w.DictNested(int(member), k, sub)
		return (pos + adv) - offset, nil

	default:
		return 0, newErr(KindUnknownTag, offset, "operation kind", ErrUnknownTag)
	}
}

// looksHeadered reports whether data opens with the headered framing's
// magic bytes, regardless of what mode the caller asked Decode to use.
func looksHeadered(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	return binary.BigEndian.Uint32(data[0:4]) == Magic
}
