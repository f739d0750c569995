package abi

// Word is one 32-byte ABI slot.
type Word [32]byte

type mediateKind uint8

const (
	// raw values are written inline in the head.
	mediateRaw mediateKind = iota
	// prefixed values put an offset in the head and their words in the tail.
	mediatePrefixed
	// prefixedArray is a dynamic fixed-size array: offset in the head, elements in the tail.
	mediatePrefixedArray
	// prefixedArrayWithLength is a dynamic array: offset in the head, length word and elements in the tail.
	mediatePrefixedArrayWithLength
	// rawTuple is a static tuple whose fields are laid out inline.
	mediateRawTuple
	// prefixedTuple is a dynamic tuple: offset in the head, fields in the tail.
	mediatePrefixedTuple
)

// mediate is the intermediate form between typed values and the flat word
// layout. Lengths are counted in words; offsets written into heads are byte
// offsets from the start of the enclosing head block.
type mediate struct {
	kind     mediateKind
	words    []Word
	children []mediate
}

func (m *mediate) headLen() int {
	switch m.kind {
	case mediateRaw:
		return len(m.words)
	case mediateRawTuple:
		n := 0
		for i := range m.children {
			n += m.children[i].headLen()
		}
		return n
	default:
		return 1
	}
}

func (m *mediate) tailLen() int {
	switch m.kind {
	case mediateRaw, mediateRawTuple:
		return 0
	case mediatePrefixed:
		return len(m.words)
	case mediatePrefixedArray, mediatePrefixedTuple:
		return childrenLen(m.children)
	case mediatePrefixedArrayWithLength:
		return 1 + childrenLen(m.children)
	}
	return 0
}

func childrenLen(children []mediate) int {
	n := 0
	for i := range children {
		n += children[i].headLen() + children[i].tailLen()
	}
	return n
}

func (m *mediate) head(offset int) []Word {
	switch m.kind {
	case mediateRaw:
		return m.words
	case mediateRawTuple:
		var out []Word
		for i := range m.children {
			out = append(out, m.children[i].head(0)...)
		}
		return out
	default:
		return []Word{uintWord(uint64(offset) * 32)}
	}
}

func (m *mediate) tail() []Word {
	switch m.kind {
	case mediatePrefixed:
		return m.words
	case mediatePrefixedArray, mediatePrefixedTuple:
		return encodeHeadTail(m.children)
	case mediatePrefixedArrayWithLength:
		out := []Word{uintWord(uint64(len(m.children)))}
		return append(out, encodeHeadTail(m.children)...)
	}
	return nil
}

// encodeHeadTail lays out a sequence of values: every head first, then every
// tail. Each dynamic head holds the byte offset of its tail.
func encodeHeadTail(items []mediate) []Word {
	headsLen := 0
	for i := range items {
		headsLen += items[i].headLen()
	}

	out := make([]Word, 0, childrenLen(items))
	offset := headsLen
	for i := range items {
		out = append(out, items[i].head(offset)...)
		offset += items[i].tailLen()
	}
	for i := range items {
		out = append(out, items[i].tail()...)
	}
	return out
}

func uintWord(v uint64) Word {
	var w Word
	for i := 0; i < 8; i++ {
		w[31-i] = byte(v >> (8 * i))
	}
	return w
}

// padBytes splits b into words, right-padding the last one with zeros.
func padBytes(b []byte) []Word {
	n := (len(b) + 31) / 32
	out := make([]Word, n)
	for i := 0; i < n; i++ {
		copy(out[i][:], b[i*32:])
	}
	return out
}

// lengthPrefixed is a length word followed by the padded bytes.
func lengthPrefixed(b []byte) []Word {
	out := make([]Word, 0, 1+(len(b)+31)/32)
	out = append(out, uintWord(uint64(len(b))))
	return append(out, padBytes(b)...)
}

func flatten(words []Word) []byte {
	out := make([]byte, 0, len(words)*32)
	for i := range words {
		out = append(out, words[i][:]...)
	}
	return out
}
