package wyvern

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type Side uint8

const (
	SideBuy  Side = 0
	SideSell Side = 1
)

type SaleKind uint8

const (
	SaleFixedPrice   SaleKind = 0
	SaleDutchAuction SaleKind = 1
)

type FeeMethod uint8

const (
	FeeProtocol FeeMethod = 0
	FeeSplit    FeeMethod = 1
)

type HowToCall uint8

const (
	CallDirect       HowToCall = 0
	CallDelegateCall HowToCall = 1
)

// Order holds the fields of an exchange order as they are passed to
// atomicMatch_.
type Order struct {
	Exchange         common.Address
	Maker            common.Address
	Taker            common.Address
	MakerRelayerFee  *big.Int
	TakerRelayerFee  *big.Int
	MakerProtocolFee *big.Int
	TakerProtocolFee *big.Int
	FeeRecipient     common.Address
	FeeMethod        FeeMethod
	Side             Side
	SaleKind         SaleKind
	Target           common.Address
	HowToCall        HowToCall

	Calldata           []byte
	ReplacementPattern []byte

	StaticTarget    common.Address
	StaticExtradata []byte
	PaymentToken    common.Address

	BasePrice      *big.Int
	Extra          *big.Int
	ListingTime    *big.Int
	ExpirationTime *big.Int
	Salt           *big.Int
}

// Sig is the maker's ECDSA signature over the order hash.
type Sig struct {
	V uint8
	R [32]byte
	S [32]byte
}

// SellOrder is a signed listing as published by the maker.
type SellOrder struct {
	Order
	Sig Sig
}

// BuyOrder is the counter-order synthesized for a caller.
type BuyOrder struct {
	Order
	Sig Sig
}

// NewBuyOrder builds the buy side matching sell for caller. The tag fills the
// unused r slot of the buy signature.
func NewBuyOrder(sell *SellOrder, caller common.Address, salt *big.Int, tag [32]byte) (*BuyOrder, error) {
	if sell == nil {
		return nil, fmt.Errorf("nil sell order")
	}
	if salt == nil {
		return nil, fmt.Errorf("nil salt")
	}

	buyMask, err := ShiftMask(sell.ReplacementPattern)
	if err != nil {
		return nil, fmt.Errorf("buy replacement pattern: %w", err)
	}
	censored, err := CensorCalldata(sell.Calldata, buyMask)
	if err != nil {
		return nil, fmt.Errorf("buy calldata: %w", err)
	}
	calldata, err := InsertBuyerAddress(censored, sell.ReplacementPattern, caller)
	if err != nil {
		return nil, fmt.Errorf("buy calldata: %w", err)
	}

	return &BuyOrder{
		Order: Order{
			Exchange:         sell.Exchange,
			Maker:            caller,
			MakerRelayerFee:  sell.MakerRelayerFee,
			TakerRelayerFee:  sell.TakerRelayerFee,
			MakerProtocolFee: sell.MakerProtocolFee,
			TakerProtocolFee: sell.TakerProtocolFee,
			FeeMethod:        sell.FeeMethod,
			Side:             SideBuy,
			SaleKind:         sell.SaleKind,
			Target:           sell.Target,
			HowToCall:        sell.HowToCall,

			Calldata:           calldata,
			ReplacementPattern: buyMask,

			StaticExtradata: []byte{},
			PaymentToken:    sell.PaymentToken,

			BasePrice:      sell.BasePrice,
			Extra:          sell.Extra,
			ListingTime:    new(big.Int),
			ExpirationTime: new(big.Int),
			Salt:           salt,
		},
		Sig: Sig{R: tag},
	}, nil
}

// RandomSalt returns a uniformly random 256-bit salt.
func RandomSalt() (*big.Int, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	return new(big.Int).SetBytes(b[:]), nil
}
