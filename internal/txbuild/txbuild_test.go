package txbuild

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"

	"wyvern-matchbot/internal/wyvern"
)

func TestBuild(t *testing.T) {
	b, err := NewBuilder(1, 0, "60", "1.5")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if b.GasLimit != DefaultGasLimit {
		t.Fatalf("gas limit = %d", b.GasLimit)
	}

	call := &wyvern.MatchCall{
		To:    wyvern.DefaultExchange,
		Value: big.NewInt(100000000000000000),
		Data:  []byte{0xab, 0x83, 0x4b, 0xab},
	}
	tx, err := b.Build(call, 7)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if tx.Type() != types.DynamicFeeTxType {
		t.Fatalf("type = %d", tx.Type())
	}
	if tx.Nonce() != 7 || tx.Gas() != DefaultGasLimit {
		t.Fatalf("nonce %d gas %d", tx.Nonce(), tx.Gas())
	}
	if *tx.To() != wyvern.DefaultExchange || tx.Value().Cmp(call.Value) != 0 {
		t.Fatalf("to %s value %s", tx.To().Hex(), tx.Value())
	}
	if tx.GasFeeCap().String() != "60000000000" || tx.GasTipCap().String() != "1500000000" {
		t.Fatalf("fee cap %s tip %s", tx.GasFeeCap(), tx.GasTipCap())
	}
	if !bytes.Equal(tx.Data(), call.Data) {
		t.Fatalf("data = %x", tx.Data())
	}

	call.Data[0] = 0
	if tx.Data()[0] != 0xab {
		t.Fatalf("transaction shares the call buffer")
	}

	want := new(big.Int).Mul(big.NewInt(60000000000), big.NewInt(DefaultGasLimit))
	want.Add(want, big.NewInt(100000000000000000))
	if MaxCost(tx).Cmp(want) != 0 {
		t.Fatalf("max cost = %s want %s", MaxCost(tx), want)
	}
}

func TestNewBuilderErrors(t *testing.T) {
	tests := []struct {
		name    string
		chainID int64
		fee     string
		tip     string
	}{
		{"chain id", 0, "10", "1"},
		{"bad fee", 1, "ten", "1"},
		{"bad tip", 1, "10", "-1"},
		{"tip above fee", 1, "1", "2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewBuilder(tc.chainID, 0, tc.fee, tc.tip); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := (&Builder{}).Build(nil, 0); err == nil {
		t.Fatalf("expected error for nil call")
	}
}
