package abi

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// FunctionIdentifier returns the first four bytes of keccak256(signature).
func FunctionIdentifier(signature string) [4]byte {
	var id [4]byte
	copy(id[:], crypto.Keccak256([]byte(signature)))
	return id
}

// Selector resolves the call prefix for signature. A "0x"-prefixed signature
// is taken as a precomputed selector and decoded verbatim.
func Selector(signature string) ([]byte, error) {
	if strings.HasPrefix(signature, "0x") {
		b, err := hexutil.Decode(signature)
		if err != nil {
			return nil, &EncodingError{Path: "selector", Err: ErrUnsupported, Detail: err.Error()}
		}
		if len(b) == 0 {
			return nil, &EncodingError{Path: "selector", Err: ErrUnsupported, Detail: "empty selector"}
		}
		return b, nil
	}
	id := FunctionIdentifier(signature)
	return id[:], nil
}

// SelectorCache memoizes Selector results. The zero value is ready to use and
// safe for concurrent use.
type SelectorCache struct {
	m sync.Map // signature -> []byte
}

var defaultSelectors SelectorCache

// Get returns a fresh copy of the selector for signature.
func (c *SelectorCache) Get(signature string) ([]byte, error) {
	if v, ok := c.m.Load(signature); ok {
		return append([]byte(nil), v.([]byte)...), nil
	}
	sel, err := Selector(signature)
	if err != nil {
		return nil, err
	}
	c.m.Store(signature, sel)
	return append([]byte(nil), sel...), nil
}
