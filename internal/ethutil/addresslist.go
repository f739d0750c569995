package ethutil

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

func isAddressSep(r rune) bool {
	return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\r' || r == '\t'
}

// ParseAddressList parses an allowlist such as "0xabc..., 0xdef...". Repeats
// are dropped and order is kept. Blank input is (nil, nil).
func ParseAddressList(raw string) ([]common.Address, error) {
	fields := strings.FieldsFunc(raw, isAddressSep)
	if len(fields) == 0 {
		return nil, nil
	}

	set := make(map[common.Address]struct{}, len(fields))
	out := make([]common.Address, 0, len(fields))
	for i, f := range fields {
		if !common.IsHexAddress(f) {
			return nil, fmt.Errorf("entry %d: invalid hex address %q", i+1, f)
		}
		a, _ := ParseAddress(f)
		if _, dup := set[a]; dup {
			continue
		}
		set[a] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}

// AddressSet indexes addrs for membership checks. A nil or empty list yields
// an empty set.
func AddressSet(addrs []common.Address) map[common.Address]struct{} {
	out := make(map[common.Address]struct{}, len(addrs))
	for _, a := range addrs {
		out[a] = struct{}{}
	}
	return out
}

func JoinHex(addrs []common.Address) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.Hex()
	}
	return strings.Join(parts, ",")
}
