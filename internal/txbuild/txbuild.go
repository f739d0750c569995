package txbuild

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"wyvern-matchbot/internal/ethutil"
	"wyvern-matchbot/internal/wyvern"
)

// DefaultGasLimit covers an atomicMatch_ with a single ERC721 transfer.
const DefaultGasLimit = 400_000

// NonceSource is satisfied by *ethclient.Client.
type NonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// Builder wraps match calls into unsigned EIP-1559 transactions. Fees are
// taken as configured; nothing is estimated.
type Builder struct {
	ChainID   *big.Int
	GasLimit  uint64
	GasFeeCap *big.Int
	GasTipCap *big.Int
}

// NewBuilder parses fee caps given in gwei.
func NewBuilder(chainID int64, gasLimit uint64, maxFeeGwei, tipGwei string) (*Builder, error) {
	if chainID <= 0 {
		return nil, fmt.Errorf("chain id must be > 0")
	}
	feeCap, err := ethutil.ParseUnits(maxFeeGwei, 9)
	if err != nil {
		return nil, fmt.Errorf("max fee: %w", err)
	}
	tip, err := ethutil.ParseUnits(tipGwei, 9)
	if err != nil {
		return nil, fmt.Errorf("priority fee: %w", err)
	}
	if tip.Cmp(feeCap) > 0 {
		return nil, fmt.Errorf("priority fee %s gwei exceeds max fee %s gwei", tipGwei, maxFeeGwei)
	}
	if gasLimit == 0 {
		gasLimit = DefaultGasLimit
	}
	return &Builder{
		ChainID:   big.NewInt(chainID),
		GasLimit:  gasLimit,
		GasFeeCap: feeCap,
		GasTipCap: tip,
	}, nil
}

// Build returns the unsigned transaction carrying call.
func (b *Builder) Build(call *wyvern.MatchCall, nonce uint64) (*types.Transaction, error) {
	if call == nil {
		return nil, fmt.Errorf("nil match call")
	}
	to := call.To
	value := new(big.Int)
	if call.Value != nil {
		value.Set(call.Value)
	}
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).Set(b.ChainID),
		Nonce:     nonce,
		GasTipCap: new(big.Int).Set(b.GasTipCap),
		GasFeeCap: new(big.Int).Set(b.GasFeeCap),
		Gas:       b.GasLimit,
		To:        &to,
		Value:     value,
		Data:      append([]byte(nil), call.Data...),
	}), nil
}

// MaxCost is the most the transaction can debit from the sender.
func MaxCost(tx *types.Transaction) *big.Int {
	gas := new(big.Int).Mul(tx.GasFeeCap(), new(big.Int).SetUint64(tx.Gas()))
	return gas.Add(gas, tx.Value())
}
