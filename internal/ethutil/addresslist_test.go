package ethutil

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestParseAddressList(t *testing.T) {
	wyvern := common.HexToAddress("0x7be8076f4ea4a4ad08075c2508e481d6c946d12b")
	weth := common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")

	tests := []struct {
		name    string
		raw     string
		want    []common.Address
		wantErr string
	}{
		{name: "blank", raw: " \n\t"},
		{name: "one", raw: "0x7be8076f4ea4a4ad08075c2508e481d6c946d12b", want: []common.Address{wyvern}},
		{
			name: "mixed separators keep order",
			raw:  "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2;\n0x7be8076f4ea4a4ad08075c2508e481d6c946d12b",
			want: []common.Address{weth, wyvern},
		},
		{
			name: "repeats dropped regardless of case",
			raw:  "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2, 0xC02AAA39B223FE8D0A0E5C4F27EAD9083C756CC2",
			want: []common.Address{weth},
		},
		{name: "bad entry", raw: "0x7be8076f4ea4a4ad08075c2508e481d6c946d12b,0x1234", wantErr: "entry 2"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAddressList(tc.raw)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("got err %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("[%d] got %s want %s", i, got[i].Hex(), tc.want[i].Hex())
				}
			}
		})
	}
}

func TestAddressSetAndJoin(t *testing.T) {
	a := common.HexToAddress("0x1")
	b := common.HexToAddress("0x2")

	set := AddressSet([]common.Address{a, b, a})
	if len(set) != 2 {
		t.Fatalf("set size=%d", len(set))
	}
	if _, ok := set[b]; !ok {
		t.Fatalf("missing %s", b.Hex())
	}
	if len(AddressSet(nil)) != 0 {
		t.Fatalf("nil list should give an empty set")
	}

	if got := JoinHex(nil); got != "" {
		t.Fatalf("JoinHex(nil)=%q", got)
	}
	want := a.Hex() + "," + b.Hex()
	if got := JoinHex([]common.Address{a, b}); got != want {
		t.Fatalf("JoinHex=%q want %q", got, want)
	}
}
