package abi

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseType parses a Solidity type string such as "uint256", "bytes32",
// "address[14]" or "(uint256,bytes)[]".
func ParseType(s string) (Token, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Token{}, fmt.Errorf("abi: empty type")
	}

	// Array suffixes bind last, so peel the outermost one first.
	if strings.HasSuffix(s, "]") {
		open := strings.LastIndexByte(s, '[')
		if open <= 0 {
			return Token{}, fmt.Errorf("abi: malformed array type %q", s)
		}
		elem, err := ParseType(s[:open])
		if err != nil {
			return Token{}, err
		}
		dim := s[open+1 : len(s)-1]
		if dim == "" {
			return ArrayType(elem), nil
		}
		n, err := strconv.Atoi(dim)
		if err != nil || n < 0 {
			return Token{}, fmt.Errorf("abi: bad array length in %q", s)
		}
		return FixedArrayType(elem, n), nil
	}

	if strings.HasPrefix(s, "(") {
		if !strings.HasSuffix(s, ")") {
			return Token{}, fmt.Errorf("abi: unterminated tuple %q", s)
		}
		fields, err := parseList(s[1 : len(s)-1])
		if err != nil {
			return Token{}, err
		}
		return TupleType(fields...), nil
	}

	switch s {
	case "address":
		return AddressType(), nil
	case "bool":
		return BoolType(), nil
	case "string":
		return StringType(), nil
	case "bytes":
		return BytesType(), nil
	case "uint":
		return UintType(256), nil
	case "int":
		return IntType(256), nil
	}

	switch {
	case strings.HasPrefix(s, "uint"):
		bits, err := parseWidth(s, s[4:], 8, 256, 8)
		if err != nil {
			return Token{}, err
		}
		return UintType(bits), nil
	case strings.HasPrefix(s, "int"):
		bits, err := parseWidth(s, s[3:], 8, 256, 8)
		if err != nil {
			return Token{}, err
		}
		return IntType(bits), nil
	case strings.HasPrefix(s, "bytes"):
		n, err := parseWidth(s, s[5:], 1, 32, 1)
		if err != nil {
			return Token{}, err
		}
		return FixedBytesType(n), nil
	}
	return Token{}, fmt.Errorf("abi: unknown type %q", s)
}

func parseWidth(full, digits string, min, max, step int) (int, error) {
	n, err := strconv.Atoi(digits)
	if err != nil || n < min || n > max || n%step != 0 {
		return 0, fmt.Errorf("abi: bad width in %q", full)
	}
	return n, nil
}

// ParseSignature splits "name(type1,type2)" into the name and parsed types.
func ParseSignature(sig string) (string, []Token, error) {
	sig = strings.TrimSpace(sig)
	open := strings.IndexByte(sig, '(')
	if open <= 0 || !strings.HasSuffix(sig, ")") {
		return "", nil, fmt.Errorf("abi: malformed signature %q", sig)
	}
	types, err := parseList(sig[open+1 : len(sig)-1])
	if err != nil {
		return "", nil, fmt.Errorf("abi: signature %q: %w", sig, err)
	}
	return sig[:open], types, nil
}

// parseList parses a comma separated type list, ignoring commas nested in
// tuples.
func parseList(s string) ([]Token, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var (
		out   []Token
		depth int
		start int
	)
	for i := 0; i <= len(s); i++ {
		if i < len(s) {
			switch s[i] {
			case '(':
				depth++
				continue
			case ')':
				depth--
				if depth < 0 {
					return nil, fmt.Errorf("abi: unbalanced parentheses in %q", s)
				}
				continue
			case ',':
				if depth > 0 {
					continue
				}
			default:
				continue
			}
		}
		t, err := ParseType(s[start:i])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		start = i + 1
	}
	if depth != 0 {
		return nil, fmt.Errorf("abi: unbalanced parentheses in %q", s)
	}
	return out, nil
}
