package sniper

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"wyvern-matchbot/internal/ethutil"
	"wyvern-matchbot/internal/opensea"
	"wyvern-matchbot/internal/wyvern"
)

var (
	ErrInactive        = errors.New("order cancelled, finalized or marked invalid")
	ErrNotSellOrder    = errors.New("not a sell order")
	ErrNotFixedPrice   = errors.New("not a fixed-price listing")
	ErrPrivateOrder    = errors.New("order reserved for another taker")
	ErrNotListedYet    = errors.New("listing time in the future")
	ErrExpired         = errors.New("order expired")
	ErrPaymentToken    = errors.New("payment token not allowed")
	ErrExchange        = errors.New("exchange not allowed")
	ErrPriceOutOfRange = errors.New("price outside limits")
	ErrQuantity        = errors.New("listing quantity is not 1")
)

// Limits decides which listings are worth matching. Empty address sets mean
// "any exchange" and "ETH only".
type Limits struct {
	MinPrice *big.Int
	MaxPrice *big.Int

	Exchanges     map[common.Address]struct{}
	PaymentTokens map[common.Address]struct{}
}

// NewLimits parses ether-denominated price bounds. Blank bounds are open.
func NewLimits(minEth, maxEth string, exchanges, paymentTokens []common.Address) (Limits, error) {
	var l Limits
	if minEth != "" {
		n, err := ethutil.ParseUnits(minEth, 18)
		if err != nil {
			return Limits{}, fmt.Errorf("min price: %w", err)
		}
		l.MinPrice = n
	}
	if maxEth != "" {
		n, err := ethutil.ParseUnits(maxEth, 18)
		if err != nil {
			return Limits{}, fmt.Errorf("max price: %w", err)
		}
		l.MaxPrice = n
	}
	if l.MinPrice != nil && l.MaxPrice != nil && l.MinPrice.Cmp(l.MaxPrice) > 0 {
		return Limits{}, fmt.Errorf("min price %s ETH above max price %s ETH", minEth, maxEth)
	}
	l.Exchanges = ethutil.AddressSet(exchanges)
	l.PaymentTokens = ethutil.AddressSet(paymentTokens)
	return l, nil
}

// CheckRecord rejects records the marketplace already flags as unusable, and
// bundles: the price limits apply to a single item. A blank quantity counts
// as 1.
func CheckRecord(rec *opensea.Order) error {
	if rec.Cancelled || rec.Finalized || rec.MarkedInvalid {
		return ErrInactive
	}
	if q := strings.TrimSpace(rec.Quantity); q != "" {
		n, err := ethutil.ParseUint256(q)
		if err != nil || n.Cmp(big.NewInt(1)) != 0 {
			return fmt.Errorf("%w: %q", ErrQuantity, q)
		}
	}
	return nil
}

// Check returns nil when sell can be matched at now, otherwise the first
// reason it cannot.
func (l Limits) Check(sell *wyvern.SellOrder, now time.Time) error {
	if sell.Side != wyvern.SideSell {
		return ErrNotSellOrder
	}
	if sell.SaleKind != wyvern.SaleFixedPrice {
		return ErrNotFixedPrice
	}
	if sell.Taker != (common.Address{}) {
		return ErrPrivateOrder
	}

	ts := big.NewInt(now.Unix())
	if sell.ListingTime != nil && sell.ListingTime.Cmp(ts) >= 0 {
		return ErrNotListedYet
	}
	if sell.ExpirationTime != nil && sell.ExpirationTime.Sign() > 0 && sell.ExpirationTime.Cmp(ts) <= 0 {
		return ErrExpired
	}

	if len(l.PaymentTokens) == 0 {
		if sell.PaymentToken != (common.Address{}) {
			return fmt.Errorf("%w: %s", ErrPaymentToken, sell.PaymentToken.Hex())
		}
	} else if _, ok := l.PaymentTokens[sell.PaymentToken]; !ok {
		return fmt.Errorf("%w: %s", ErrPaymentToken, sell.PaymentToken.Hex())
	}
	if len(l.Exchanges) > 0 {
		if _, ok := l.Exchanges[sell.Exchange]; !ok {
			return fmt.Errorf("%w: %s", ErrExchange, sell.Exchange.Hex())
		}
	}

	price := sell.BasePrice
	if price == nil {
		price = new(big.Int)
	}
	if l.MinPrice != nil && price.Cmp(l.MinPrice) < 0 {
		return fmt.Errorf("%w: %s ETH < %s ETH", ErrPriceOutOfRange, ethutil.FormatUnits(price, 18), ethutil.FormatUnits(l.MinPrice, 18))
	}
	if l.MaxPrice != nil && price.Cmp(l.MaxPrice) > 0 {
		return fmt.Errorf("%w: %s ETH > %s ETH", ErrPriceOutOfRange, ethutil.FormatUnits(price, 18), ethutil.FormatUnits(l.MaxPrice, 18))
	}
	return nil
}
