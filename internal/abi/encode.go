package abi

import (
	"math/big"
	"reflect"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EncodeCall returns the selector for signature followed by the encoded args.
func EncodeCall(signature string, args ...Arg) ([]byte, error) {
	sel, err := defaultSelectors.Get(signature)
	if err != nil {
		return nil, err
	}
	body, err := EncodeArgs(args...)
	if err != nil {
		return nil, err
	}
	return append(sel, body...), nil
}

// EncodeArgs encodes args as one top-level tuple without a selector.
func EncodeArgs(args ...Arg) ([]byte, error) {
	items := make([]mediate, 0, len(args))
	for i, a := range args {
		m, err := toMediate(a.Type, a.Value, "args["+strconv.Itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return flatten(encodeHeadTail(items)), nil
}

func toMediate(t Token, v any, path string) (mediate, error) {
	switch t.Kind {
	case KindAddress:
		addr, ok := toAddress(v)
		if !ok {
			return mediate{}, mismatch(path, "want address, got %T", v)
		}
		var w Word
		copy(w[12:], addr[:])
		return mediate{kind: mediateRaw, words: []Word{w}}, nil

	case KindFixedBytes:
		size := t.Size
		if size == 0 {
			size = 32
		}
		if size < 0 || size > 32 {
			return mediate{}, unsupported(path, "bytes%d", t.Size)
		}
		b, ok := toBytes(v)
		if !ok {
			return mediate{}, mismatch(path, "want %s, got %T", t, v)
		}
		if len(b) != size {
			return mediate{}, mismatch(path, "want %d bytes, got %d", size, len(b))
		}
		return mediate{kind: mediateRaw, words: padBytes(b)}, nil

	case KindBytes:
		b, ok := v.([]byte)
		if !ok {
			return mediate{}, mismatch(path, "want bytes, got %T", v)
		}
		return mediate{kind: mediatePrefixed, words: lengthPrefixed(b)}, nil

	case KindString:
		s, ok := v.(string)
		if !ok {
			return mediate{}, mismatch(path, "want string, got %T", v)
		}
		return mediate{kind: mediatePrefixed, words: lengthPrefixed([]byte(s))}, nil

	case KindInt, KindUint:
		w, err := intWord(t, v, path)
		if err != nil {
			return mediate{}, err
		}
		return mediate{kind: mediateRaw, words: []Word{w}}, nil

	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return mediate{}, mismatch(path, "want bool, got %T", v)
		}
		var w Word
		if b {
			w[31] = 1
		}
		return mediate{kind: mediateRaw, words: []Word{w}}, nil

	case KindFixedArray:
		if t.Elem == nil || t.Size < 0 {
			return mediate{}, unsupported(path, "fixed array without element type")
		}
		children, err := listChildren(*t.Elem, v, path)
		if err != nil {
			return mediate{}, err
		}
		if len(children) != t.Size {
			return mediate{}, mismatch(path, "want %d elements, got %d", t.Size, len(children))
		}
		if t.Elem.IsDynamic() {
			return mediate{kind: mediatePrefixedArray, children: children}, nil
		}
		return mediate{kind: mediateRaw, words: encodeHeadTail(children)}, nil

	case KindArray:
		if t.Elem == nil {
			return mediate{}, unsupported(path, "array without element type")
		}
		children, err := listChildren(*t.Elem, v, path)
		if err != nil {
			return mediate{}, err
		}
		return mediate{kind: mediatePrefixedArrayWithLength, children: children}, nil

	case KindTuple:
		items, ok := toList(v)
		if !ok {
			return mediate{}, mismatch(path, "want tuple, got %T", v)
		}
		if len(items) != len(t.Fields) {
			return mediate{}, mismatch(path, "want %d fields, got %d", len(t.Fields), len(items))
		}
		children := make([]mediate, 0, len(items))
		for i, item := range items {
			m, err := toMediate(t.Fields[i], item, path+"."+strconv.Itoa(i))
			if err != nil {
				return mediate{}, err
			}
			children = append(children, m)
		}
		if t.IsDynamic() {
			return mediate{kind: mediatePrefixedTuple, children: children}, nil
		}
		return mediate{kind: mediateRawTuple, children: children}, nil
	}

	return mediate{}, unsupported(path, "token kind %s", t.Kind)
}

func listChildren(elem Token, v any, path string) ([]mediate, error) {
	items, ok := toList(v)
	if !ok {
		return nil, mismatch(path, "want list of %s, got %T", elem, v)
	}
	out := make([]mediate, 0, len(items))
	for i, item := range items {
		m, err := toMediate(elem, item, path+"["+strconv.Itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func toAddress(v any) (common.Address, bool) {
	switch a := v.(type) {
	case common.Address:
		return a, true
	case *common.Address:
		if a == nil {
			return common.Address{}, false
		}
		return *a, true
	case [20]byte:
		return common.Address(a), true
	}
	return common.Address{}, false
}

func toBytes(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case common.Hash:
		return b.Bytes(), true
	case [32]byte:
		return b[:], true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		out := make([]byte, rv.Len())
		for i := range out {
			out[i] = byte(rv.Index(i).Uint())
		}
		return out, true
	}
	return nil, false
}

// toList accepts []any or any Go slice/array and returns its elements.
func toList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toBig(v any) (*big.Int, bool) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, false
		}
		return n, true
	case *uint256.Int:
		if n == nil {
			return nil, false
		}
		return n.ToBig(), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), true
	}
	return nil, false
}

func intWord(t Token, v any, path string) (Word, error) {
	bits := t.bits()
	if bits <= 0 || bits > 256 || bits%8 != 0 {
		return Word{}, unsupported(path, "%s%d", t.Kind, bits)
	}
	n, ok := toBig(v)
	if !ok {
		return Word{}, mismatch(path, "want %s, got %T", t, v)
	}

	if t.Kind == KindUint {
		if n.Sign() < 0 || n.BitLen() > bits {
			return Word{}, mismatch(path, "%s out of range for %s", n, t)
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return Word{}, mismatch(path, "%s out of range for %s", n, t)
		}
	}

	// Negative values come back in two's complement.
	u, overflow := uint256.FromBig(n)
	if overflow {
		return Word{}, mismatch(path, "%s overflows 256 bits", n)
	}
	return Word(u.Bytes32()), nil
}
