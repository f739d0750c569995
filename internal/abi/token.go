package abi

import (
	"strconv"
	"strings"
)

// Kind identifies the ABI type of a Token.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindAddress
	KindFixedBytes
	KindBytes
	KindInt
	KindUint
	KindBool
	KindString
	KindFixedArray
	KindArray
	KindTuple
)

func (k Kind) String() string {
	switch k {
	case KindAddress:
		return "address"
	case KindFixedBytes:
		return "fixed_bytes"
	case KindBytes:
		return "bytes"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindFixedArray:
		return "fixed_array"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	default:
		return "invalid"
	}
}

// Token describes the ABI type of one encoded value.
//
// Size is the byte width for FixedBytes (0 = 32), the bit width for
// Int/Uint (0 = 256) and the element count for FixedArray.
type Token struct {
	Kind   Kind
	Size   int
	Elem   *Token
	Fields []Token
}

func AddressType() Token { return Token{Kind: KindAddress} }
func FixedBytesType(n int) Token { return Token{Kind: KindFixedBytes, Size: n} }
func BytesType() Token { return Token{Kind: KindBytes} }
func IntType(bits int) Token { return Token{Kind: KindInt, Size: bits} }
func UintType(bits int) Token { return Token{Kind: KindUint, Size: bits} }
func BoolType() Token { return Token{Kind: KindBool} }
func StringType() Token { return Token{Kind: KindString} }

func FixedArrayType(elem Token, n int) Token {
	return Token{Kind: KindFixedArray, Size: n, Elem: &elem}
}

func ArrayType(elem Token) Token {
	return Token{Kind: KindArray, Elem: &elem}
}

func TupleType(fields ...Token) Token {
	return Token{Kind: KindTuple, Fields: append([]Token(nil), fields...)}
}

// IsDynamic reports whether values of t are encoded out of line.
func (t Token) IsDynamic() bool {
	switch t.Kind {
	case KindBytes, KindString, KindArray:
		return true
	case KindFixedArray:
		return t.Elem != nil && t.Elem.IsDynamic()
	case KindTuple:
		for _, f := range t.Fields {
			if f.IsDynamic() {
				return true
			}
		}
	}
	return false
}

func (t Token) bits() int {
	if t.Size == 0 {
		return 256
	}
	return t.Size
}

// String renders the canonical Solidity type name used in signatures.
func (t Token) String() string {
	switch t.Kind {
	case KindAddress:
		return "address"
	case KindFixedBytes:
		if t.Size == 0 {
			return "bytes32"
		}
		return "bytes" + strconv.Itoa(t.Size)
	case KindBytes:
		return "bytes"
	case KindInt:
		return "int" + strconv.Itoa(t.bits())
	case KindUint:
		return "uint" + strconv.Itoa(t.bits())
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindFixedArray:
		if t.Elem == nil {
			return "invalid[" + strconv.Itoa(t.Size) + "]"
		}
		return t.Elem.String() + "[" + strconv.Itoa(t.Size) + "]"
	case KindArray:
		if t.Elem == nil {
			return "invalid[]"
		}
		return t.Elem.String() + "[]"
	case KindTuple:
		parts := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			parts = append(parts, f.String())
		}
		return "(" + strings.Join(parts, ",") + ")"
	default:
		return "invalid"
	}
}

// Signature renders name(type1,type2,...).
func Signature(name string, types []Token) string {
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, t.String())
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// Arg pairs a value with the ABI type it is encoded as.
type Arg struct {
	Type  Token
	Value any
}
