package ethutil

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
)

// DecodeHex decodes a hex string with or without the 0x prefix. "" and "0x"
// decode to an empty slice.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" || s == "0X" {
		return []byte{}, nil
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode("0x" + s[2:])
}

// ParseWord decodes exactly 32 bytes of hex.
func ParseWord(s string) ([32]byte, error) {
	var w [32]byte
	b, err := DecodeHex(s)
	if err != nil {
		return w, err
	}
	if len(b) != 32 {
		return w, fmt.Errorf("want 32 bytes, got %d", len(b))
	}
	copy(w[:], b)
	return w, nil
}

// ParseAddress parses a single hex address. An empty string is the zero
// address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid hex address %q", s)
	}
	return common.HexToAddress(s), nil
}

// ParseUint256 parses a non-negative decimal (or 0x hex) integer that fits in
// 256 bits.
func ParseUint256(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty integer")
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, fmt.Errorf("invalid uint256 %q", s)
	}
	n, ok := math.ParseBig256(s)
	if !ok {
		return nil, fmt.Errorf("invalid uint256 %q", s)
	}
	return n, nil
}

// ParseUnits converts a decimal amount such as "0.25" into base units with
// the given number of decimals (18 for ether, 9 for gwei).
func ParseUnits(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatUnits renders base units as a decimal amount.
func FormatUnits(n *big.Int, decimals int32) string {
	if n == nil {
		return "0"
	}
	return decimal.NewFromBigInt(n, -decimals).String()
}
