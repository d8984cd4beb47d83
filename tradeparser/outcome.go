package tradeparser

import (
	"math"

	"github.com/AlekSi/pointer"
)

// TradeType tags what a transaction did economically.
type TradeType string

const (
	TradeBuy      TradeType = "buy"
	TradeSell     TradeType = "sell"
	TradeSwap     TradeType = "swap"
	TradeTransfer TradeType = "transfer"
)

// Source names the strategy that produced an outcome.
type Source string

const (
	SourceOracle  Source = "oracle"
	SourceDex     Source = "dex"
	SourceGeneric Source = "generic"
)

// TokenAmount is one leg of a trade, in UI units.
type TokenAmount struct {
	Mint     string  `json:"mint"`
	Symbol   string  `json:"symbol,omitempty"`
	Amount   float64 `json:"amount"`
	Decimals uint8   `json:"decimals"`
}

// TradeOutcome is the normalized trade record. Which sides are set depends on
// Type: Buy/Sell/Swap carry both, Transfer carries exactly one and no price.
// Construction goes through the typed constructors below so those invariants
// hold everywhere.
type TradeOutcome struct {
	Type   TradeType    `json:"type"`
	Sold   *TokenAmount `json:"soldToken,omitempty"`
	Bought *TokenAmount `json:"boughtToken,omitempty"`

	// Price is the native (or counter-asset) cost per unit of the non-native
	// token; nil when a denominator is zero or an external feed is missing.
	Price *float64 `json:"price,omitempty"`

	// PriceUSD is filled when a SOL leg exists and a SOL/USD source is wired.
	PriceUSD *float64 `json:"priceUsd,omitempty"`

	Dex    Dex    `json:"dex"`
	Source Source `json:"source"`

	Holder    string `json:"holderAddress,omitempty"`
	Signature string `json:"signature"`
	BlockTime int64  `json:"blockTime"`
	Slot      uint64 `json:"slot"`
	Fee       uint64 `json:"fee"`
	Note      string `json:"note,omitempty"`
}

func nativeLeg(amount float64) *TokenAmount {
	return &TokenAmount{
		Mint:     NativeSOLMintProgramID.String(),
		Symbol:   NativeSymbol,
		Amount:   amount,
		Decimals: NativeDecimals,
	}
}

// ratio returns num/den as a price pointer, nil on a zero denominator or a
// non-finite or negative result.
func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	if math.IsInf(v, 0) || math.IsNaN(v) || v < 0 {
		return nil
	}
	return pointer.ToFloat64(v)
}

// newBuy: native spent for a token. Price is native paid per token unit.
func newBuy(nativeSpent float64, bought TokenAmount) *TradeOutcome {
	return &TradeOutcome{
		Type:   TradeBuy,
		Sold:   nativeLeg(nativeSpent),
		Bought: &bought,
		Price:  ratio(nativeSpent, bought.Amount),
	}
}

// newSell: token sold for native. Price is native received per token unit.
func newSell(sold TokenAmount, nativeReceived float64) *TradeOutcome {
	return &TradeOutcome{
		Type:   TradeSell,
		Sold:   &sold,
		Bought: nativeLeg(nativeReceived),
		Price:  ratio(nativeReceived, sold.Amount),
	}
}

// newSwap: token for token, neither side native. Price is bought per sold.
func newSwap(sold, bought TokenAmount) *TradeOutcome {
	return &TradeOutcome{
		Type:   TradeSwap,
		Sold:   &sold,
		Bought: &bought,
		Price:  ratio(bought.Amount, sold.Amount),
	}
}

// newTransfer: a single-sided movement. Outgoing amounts land on the sold
// side, incoming on the bought side. Transfers never carry a price.
func newTransfer(leg TokenAmount, outgoing bool) *TradeOutcome {
	out := &TradeOutcome{Type: TradeTransfer}
	if outgoing {
		out.Sold = &leg
	} else {
		out.Bought = &leg
	}
	return out
}

// stamp fills the transaction-scoped fields shared by every strategy.
func (o *TradeOutcome) stamp(r *Record, dex Dex, source Source) *TradeOutcome {
	o.Dex = dex
	o.Source = source
	o.Signature = r.Signature
	o.BlockTime = r.BlockTime
	o.Slot = r.Slot
	o.Fee = r.Fee()
	return o
}

// Clone deep-copies the outcome; the cache hands out copies, never shared
// pointers.
func (o *TradeOutcome) Clone() *TradeOutcome {
	if o == nil {
		return nil
	}
	cp := *o
	if o.Sold != nil {
		sold := *o.Sold
		cp.Sold = &sold
	}
	if o.Bought != nil {
		bought := *o.Bought
		cp.Bought = &bought
	}
	if o.Price != nil {
		cp.Price = pointer.ToFloat64(*o.Price)
	}
	if o.PriceUSD != nil {
		cp.PriceUSD = pointer.ToFloat64(*o.PriceUSD)
	}
	return &cp
}
