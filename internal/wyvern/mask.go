package wyvern

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Wildcard marks a calldata byte the counterparty may replace.
const Wildcard = 0xff

const wordSize = 32

var (
	ErrInvalidMask        = errors.New("invalid replacement pattern")
	ErrMaskTooShort       = fmt.Errorf("%w: must be longer than one word", ErrInvalidMask)
	ErrMaskLengthMismatch = fmt.Errorf("%w: length differs from calldata", ErrInvalidMask)
	ErrMaskOutOfBounds    = fmt.Errorf("%w: wildcard window runs past the end", ErrInvalidMask)
	ErrNoWildcard         = fmt.Errorf("%w: no wildcard window", ErrInvalidMask)
)

// ShiftMask derives the buy-side replacement pattern from the sell-side one:
// every wildcard byte at index i >= 32 trades places with the byte one word
// earlier. Bytes are only ever swapped, so the result has the same length and
// the same number of set bits as mask.
func ShiftMask(mask []byte) ([]byte, error) {
	if len(mask) <= wordSize {
		return nil, fmt.Errorf("%w (len=%d)", ErrMaskTooShort, len(mask))
	}
	out := append([]byte(nil), mask...)
	for i := wordSize; i < len(mask); i++ {
		if mask[i] != Wildcard {
			continue
		}
		out[i-wordSize], out[i] = out[i], out[i-wordSize]
	}
	return out, nil
}

// CensorCalldata returns a copy of data with every wildcard position zeroed.
func CensorCalldata(data, mask []byte) ([]byte, error) {
	if len(data) != len(mask) {
		return nil, fmt.Errorf("%w (data=%d mask=%d)", ErrMaskLengthMismatch, len(data), len(mask))
	}
	out := append([]byte(nil), data...)
	for i, m := range mask {
		if m == Wildcard {
			out[i] = 0
		}
	}
	return out, nil
}

// InsertBuyerAddress returns a copy of data with addr written as a 32-byte
// word at the start of the first wildcard window in mask. Later windows are
// left as they are.
func InsertBuyerAddress(data, mask []byte, addr common.Address) ([]byte, error) {
	if len(data) != len(mask) {
		return nil, fmt.Errorf("%w (data=%d mask=%d)", ErrMaskLengthMismatch, len(data), len(mask))
	}
	start := firstWindow(mask)
	if start < 0 {
		return nil, ErrNoWildcard
	}
	if start+wordSize > len(data) {
		return nil, fmt.Errorf("%w (start=%d len=%d)", ErrMaskOutOfBounds, start, len(data))
	}

	out := append([]byte(nil), data...)
	copy(out[start:start+wordSize], common.LeftPadBytes(addr.Bytes(), wordSize))
	return out, nil
}

// WildcardRuns counts the wildcard windows InsertBuyerAddress could target.
func WildcardRuns(mask []byte) int {
	n := 0
	for i := 1; i < len(mask); i++ {
		if mask[i] == Wildcard && mask[i-1] != Wildcard {
			n++
		}
	}
	return n
}

func firstWindow(mask []byte) int {
	for i := 1; i < len(mask); i++ {
		if mask[i] == Wildcard && mask[i-1] != Wildcard {
			return i
		}
	}
	return -1
}
