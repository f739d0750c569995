package abi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

// ValueFromJSON converts a JSON value into an encoder value for t.
//
// Addresses and byte strings are 0x hex strings; integers are JSON numbers or
// decimal/0x strings; arrays and tuples are JSON arrays.
func ValueFromJSON(t Token, raw json.RawMessage) (any, error) {
	switch t.Kind {
	case KindAddress:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("abi: address: %w", err)
		}
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("abi: invalid address %q", s)
		}
		return common.HexToAddress(s), nil

	case KindFixedBytes, KindBytes:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("abi: %s: %w", t, err)
		}
		if s == "" || s == "0x" {
			return []byte{}, nil
		}
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("abi: %s %q: %w", t, s, err)
		}
		return b, nil

	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("abi: string: %w", err)
		}
		return s, nil

	case KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("abi: bool: %w", err)
		}
		return b, nil

	case KindInt, KindUint:
		return bigFromJSON(raw)

	case KindFixedArray, KindArray:
		if t.Elem == nil {
			return nil, fmt.Errorf("abi: %s without element type", t.Kind)
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("abi: %s: %w", t, err)
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			v, err := ValueFromJSON(*t.Elem, item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil

	case KindTuple:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("abi: %s: %w", t, err)
		}
		if len(items) != len(t.Fields) {
			return nil, fmt.Errorf("abi: %s: want %d fields, got %d", t, len(t.Fields), len(items))
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			v, err := ValueFromJSON(t.Fields[i], item)
			if err != nil {
				return nil, fmt.Errorf(".%d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("abi: %s: %w", t.Kind, ErrUnsupported)
}

func bigFromJSON(raw json.RawMessage) (*big.Int, error) {
	raw = bytes.TrimSpace(raw)
	var s string
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("abi: integer: %w", err)
		}
	} else {
		s = string(raw)
	}
	s = strings.TrimSpace(s)

	digits := strings.TrimPrefix(s, "-")
	neg := len(digits) < len(s)
	n, ok := math.ParseBig256(digits)
	if !ok || digits == "" || strings.HasPrefix(digits, "-") || strings.HasPrefix(digits, "+") {
		return nil, fmt.Errorf("abi: invalid integer %q", s)
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}

// ArgsFromJSON pairs a JSON array of values with the parameter types of sig.
func ArgsFromJSON(sig string, raw json.RawMessage) ([]Arg, error) {
	_, types, err := ParseSignature(sig)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("abi: args must be a JSON array: %w", err)
		}
	}
	if len(items) != len(types) {
		return nil, fmt.Errorf("abi: %s takes %d args, got %d", sig, len(types), len(items))
	}
	out := make([]Arg, 0, len(types))
	for i, t := range types {
		v, err := ValueFromJSON(t, items[i])
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		out = append(out, Arg{Type: t, Value: v})
	}
	return out, nil
}
