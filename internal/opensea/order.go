package opensea

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"wyvern-matchbot/internal/ethutil"
	"wyvern-matchbot/internal/wyvern"
)

// Account is the marketplace's wrapper around an address.
type Account struct {
	Address string `json:"address"`
	Config  string `json:"config,omitempty"`
}

type Metadata struct {
	Schema string `json:"schema,omitempty"`
	Asset  struct {
		ID      string `json:"id,omitempty"`
		Address string `json:"address,omitempty"`
	} `json:"asset"`
}

// Order is one Wyvern order record as served by the marketplace API.
// Numeric fields are decimal strings, byte fields are 0x hex.
type Order struct {
	ID          int64   `json:"id"`
	OrderHash   *string `json:"order_hash"`
	CreatedDate *string `json:"created_date,omitempty"`

	Exchange     string  `json:"exchange"`
	Maker        Account `json:"maker"`
	Taker        Account `json:"taker"`
	FeeRecipient Account `json:"fee_recipient"`
	CurrentPrice string  `json:"current_price"`

	MakerRelayerFee  string `json:"maker_relayer_fee"`
	TakerRelayerFee  string `json:"taker_relayer_fee"`
	MakerProtocolFee string `json:"maker_protocol_fee"`
	TakerProtocolFee string `json:"taker_protocol_fee"`

	FeeMethod uint8 `json:"fee_method"`
	Side      uint8 `json:"side"`
	SaleKind  uint8 `json:"sale_kind"`
	HowToCall uint8 `json:"how_to_call"`

	Target             string `json:"target"`
	Calldata           string `json:"calldata"`
	ReplacementPattern string `json:"replacement_pattern"`
	StaticTarget       string `json:"static_target"`
	StaticExtradata    string `json:"static_extradata"`
	PaymentToken       string `json:"payment_token"`

	BasePrice      string `json:"base_price"`
	Extra          string `json:"extra"`
	Quantity       string `json:"quantity"`
	ListingTime    uint64 `json:"listing_time"`
	ExpirationTime uint64 `json:"expiration_time"`
	Salt           string `json:"salt"`

	V uint8  `json:"v"`
	R string `json:"r"`
	S string `json:"s"`

	Metadata Metadata `json:"metadata"`

	ApprovedOnChain bool `json:"approved_on_chain"`
	Cancelled       bool `json:"cancelled"`
	Finalized       bool `json:"finalized"`
	MarkedInvalid   bool `json:"marked_invalid"`
}

// Key identifies the order for de-duplication.
func (o *Order) Key() string {
	if o.OrderHash != nil && strings.TrimSpace(*o.OrderHash) != "" {
		return strings.ToLower(strings.TrimSpace(*o.OrderHash))
	}
	return strings.ToLower(o.Maker.Address) + ":" + o.Salt
}

// TokenID returns the listed asset's token id, if the record carries one.
func (o *Order) TokenID() string { return o.Metadata.Asset.ID }

// SellOrder decodes the record into exchange types. Every field must parse;
// the error names the first one that does not.
func (o *Order) SellOrder() (*wyvern.SellOrder, error) {
	var (
		p   fieldParser
		out wyvern.SellOrder
	)

	out.Exchange = p.address("exchange", o.Exchange)
	out.Maker = p.address("maker", o.Maker.Address)
	out.Taker = p.address("taker", o.Taker.Address)
	out.FeeRecipient = p.address("fee_recipient", o.FeeRecipient.Address)
	out.Target = p.address("target", o.Target)
	out.StaticTarget = p.address("static_target", o.StaticTarget)
	out.PaymentToken = p.address("payment_token", o.PaymentToken)

	out.MakerRelayerFee = p.bigint("maker_relayer_fee", o.MakerRelayerFee)
	out.TakerRelayerFee = p.bigint("taker_relayer_fee", o.TakerRelayerFee)
	out.MakerProtocolFee = p.bigint("maker_protocol_fee", o.MakerProtocolFee)
	out.TakerProtocolFee = p.bigint("taker_protocol_fee", o.TakerProtocolFee)
	out.BasePrice = p.bigint("base_price", o.BasePrice)
	out.Extra = p.bigint("extra", o.Extra)
	out.Salt = p.bigint("salt", o.Salt)
	out.ListingTime = new(big.Int).SetUint64(o.ListingTime)
	out.ExpirationTime = new(big.Int).SetUint64(o.ExpirationTime)

	out.Calldata = p.hex("calldata", o.Calldata)
	out.ReplacementPattern = p.hex("replacement_pattern", o.ReplacementPattern)
	out.StaticExtradata = p.hex("static_extradata", o.StaticExtradata)

	out.FeeMethod = wyvern.FeeMethod(o.FeeMethod)
	out.Side = wyvern.Side(o.Side)
	out.SaleKind = wyvern.SaleKind(o.SaleKind)
	out.HowToCall = wyvern.HowToCall(o.HowToCall)

	out.Sig.V = o.V
	out.Sig.R = p.word("r", o.R)
	out.Sig.S = p.word("s", o.S)

	if p.err != nil {
		return nil, p.err
	}
	return &out, nil
}

// fieldParser records the first failure so SellOrder reads as a flat list.
type fieldParser struct {
	err error
}

func (p *fieldParser) fail(field string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("order field %s: %w", field, err)
	}
}

func (p *fieldParser) address(field, s string) common.Address {
	a, err := ethutil.ParseAddress(s)
	if err != nil {
		p.fail(field, err)
	}
	return a
}

func (p *fieldParser) bigint(field, s string) *big.Int {
	n, err := ethutil.ParseUint256(s)
	if err != nil {
		p.fail(field, err)
		return new(big.Int)
	}
	return n
}

func (p *fieldParser) hex(field, s string) []byte {
	b, err := ethutil.DecodeHex(s)
	if err != nil {
		p.fail(field, err)
	}
	return b
}

func (p *fieldParser) word(field, s string) [32]byte {
	w, err := ethutil.ParseWord(s)
	if err != nil {
		p.fail(field, err)
	}
	return w
}

type ordersEnvelope struct {
	Count  int     `json:"count"`
	Orders []Order `json:"orders"`
}

// ReadOrders reads order records from r. It accepts {"orders": [...]}, a bare
// JSON array, a single object, or one JSON object per line.
func ReadOrders(r io.Reader) ([]Order, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	if body[0] == '[' {
		var out []Order
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decode orders array: %w", err)
		}
		return out, nil
	}

	var env ordersEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Orders != nil {
		return env.Orders, nil
	}
	if json.Valid(body) {
		var o Order
		if err := json.Unmarshal(body, &o); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		return []Order{o}, nil
	}

	var out []Order
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var o Order
		if err := json.Unmarshal(b, &o); err != nil {
			return nil, fmt.Errorf("decode order line %d: %w", line, err)
		}
		out = append(out, o)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
