package codec

// stringTable and typeTable are the writer-side interning tables §4.8
// describes: built in first-seen order, scoped to a single Encode call
// (§5 "no process-wide state"), grounded on the teacher's
// models/string_intern.go map-plus-slice shape.
type stringTable struct {
	index map[string]int
	order []string
}

func newStringTable() *stringTable {
	return &stringTable{index: make(map[string]int)}
}

// intern returns the table index for s, assigning the next index on
// first sight.
func (t *stringTable) intern(s string) int {
	if i, ok := t.index[s]; ok {
		return i
	}
	i := len(t.order)
	t.index[s] = i
	t.order = append(t.order, s)
	return i
}

func (t *stringTable) encode(buf []byte) []byte {
	buf = putUvarint(buf, uint64(len(t.order)))
	for _, s := range t.order {
		buf = putUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	}
	return buf
}

type typeTable struct {
	index map[string]int
	order []string
}

func newTypeTable() *typeTable {
	return &typeTable{index: make(map[string]int)}
}

func (t *typeTable) intern(s string) int {
	if i, ok := t.index[s]; ok {
		return i
	}
	i := len(t.order)
	t.index[s] = i
	t.order = append(t.order, s)
	return i
}

func (t *typeTable) encode(buf []byte) []byte {
	buf = putUvarint(buf, uint64(len(t.order)))
	for _, s := range t.order {
		buf = putUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	}
	return buf
}

// decodeStringTable and decodeTypeTable are the reader-side
// reconstruction: a plain slice indexed by the interned reference.
func decodeStringTable(data []byte, offset int, opts Options) ([]string, int, error) {
	return decodeStrTable(data, offset, opts)
}

func decodeTypeTable(data []byte, offset int, opts Options) ([]string, int, error) {
	return decodeStrTable(data, offset, opts)
}

func decodeStrTable(data []byte, offset int, opts Options) ([]string, int, error) {
	count, n, err := readUvarint(data, offset)
	if err != nil {
		return nil, 0, err
	}
	offset += n
	total := n
	if opts.MaxListLen > 0 && count > uint64(opts.MaxListLen) {
		return nil, 0, newErr(KindBoundExceeded, offset, "table count", ErrBoundExceeded)
	}
	out := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		length, ln, err := readUvarint(data, offset)
		if err != nil {
			return nil, 0, err
		}
		offset += ln
		total += ln
		if opts.MaxStringBytes > 0 && length > uint64(opts.MaxStringBytes) {
			return nil, 0, newErr(KindBoundExceeded, offset, "string length", ErrBoundExceeded)
		}
		if offset+int(length) > len(data) {
			return nil, 0, newErr(KindTruncated, offset, "string bytes", ErrTruncated)
		}
		out = append(out, string(data[offset:offset+int(length)]))
		offset += int(length)
		total += int(length)
	}
	return out, total, nil
}
