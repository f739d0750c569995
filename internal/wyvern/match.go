package wyvern

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"wyvern-matchbot/internal/abi"
)

// DefaultExchange is the Wyvern v2 exchange the marketplace settled on.
var DefaultExchange = common.HexToAddress("0x7be8076f4ea4a4ad08075c2508e481d6c946d12b")

const AtomicMatchSignature = "atomicMatch_(address[14],uint256[18],uint8[8],bytes,bytes,bytes,bytes,bytes,bytes,uint8[2],bytes32[5])"

var atomicMatchTypes = mustParseSignature(AtomicMatchSignature)

func mustParseSignature(sig string) []abi.Token {
	_, types, err := abi.ParseSignature(sig)
	if err != nil {
		panic(err)
	}
	return types
}

// MatchCall is a ready-to-send atomicMatch_ invocation.
type MatchCall struct {
	To    common.Address
	Value *big.Int
	Data  []byte

	Buy *BuyOrder
	// WildcardRuns > 1 means the sell pattern had windows beyond the one the
	// buyer address was written into.
	WildcardRuns int
}

// Builder assembles atomicMatch_ calls. The zero value draws random salts and
// leaves the buy r slot zero.
type Builder struct {
	Tag  [32]byte
	Salt func() (*big.Int, error)
}

// Build synthesizes the buy order for caller and encodes the match against
// sell. Each call draws a fresh salt.
func (b *Builder) Build(sell *SellOrder, caller common.Address) (*MatchCall, error) {
	if sell == nil {
		return nil, fmt.Errorf("nil sell order")
	}
	saltFn := RandomSalt
	if b != nil && b.Salt != nil {
		saltFn = b.Salt
	}
	salt, err := saltFn()
	if err != nil {
		return nil, err
	}
	var tag [32]byte
	if b != nil {
		tag = b.Tag
	}

	buy, err := NewBuyOrder(sell, caller, salt, tag)
	if err != nil {
		return nil, err
	}

	data, err := abi.EncodeCall(AtomicMatchSignature, matchArgs(buy, sell)...)
	if err != nil {
		return nil, fmt.Errorf("encode atomicMatch_: %w", err)
	}

	return &MatchCall{
		To:           sell.Exchange,
		Value:        orZero(sell.BasePrice),
		Data:         data,
		Buy:          buy,
		WildcardRuns: WildcardRuns(sell.ReplacementPattern),
	}, nil
}

func matchArgs(buy *BuyOrder, sell *SellOrder) []abi.Arg {
	addrs := [14]common.Address{
		buy.Exchange, buy.Maker, buy.Taker, buy.FeeRecipient, buy.Target, buy.StaticTarget, buy.PaymentToken,
		sell.Exchange, sell.Maker, sell.Taker, sell.FeeRecipient, sell.Target, sell.StaticTarget, sell.PaymentToken,
	}

	uints := [18]*big.Int{
		orZero(buy.MakerRelayerFee), orZero(buy.TakerRelayerFee), orZero(buy.MakerProtocolFee), orZero(buy.TakerProtocolFee),
		orZero(buy.BasePrice), orZero(buy.Extra), orZero(buy.ListingTime), orZero(buy.ExpirationTime), orZero(buy.Salt),
		orZero(sell.MakerRelayerFee), orZero(sell.TakerRelayerFee), orZero(sell.MakerProtocolFee), orZero(sell.TakerProtocolFee),
		orZero(sell.BasePrice), orZero(sell.Extra), orZero(sell.ListingTime), orZero(sell.ExpirationTime), orZero(sell.Salt),
	}

	kinds := [8]uint8{
		uint8(buy.FeeMethod), uint8(SideBuy), uint8(buy.SaleKind), uint8(buy.HowToCall),
		uint8(sell.FeeMethod), uint8(SideSell), uint8(sell.SaleKind), uint8(sell.HowToCall),
	}

	vs := [2]uint8{buy.Sig.V, sell.Sig.V}
	rss := [5][32]byte{buy.Sig.R, buy.Sig.S, sell.Sig.R, sell.Sig.S, {}}

	vals := []any{
		addrs,
		uints,
		kinds,
		buy.Calldata,
		sell.Calldata,
		buy.ReplacementPattern,
		sell.ReplacementPattern,
		orEmpty(buy.StaticExtradata),
		orEmpty(sell.StaticExtradata),
		vs,
		rss,
	}

	args := make([]abi.Arg, len(atomicMatchTypes))
	for i, t := range atomicMatchTypes {
		args[i] = abi.Arg{Type: t, Value: vals[i]}
	}
	return args
}

func orZero(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return n
}

func orEmpty(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
