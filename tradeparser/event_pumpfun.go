package tradeparser

import (
	"bytes"
	"math"
	"strings"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// PumpfunTradeEvent is the anchor event pump.fun emits for every bonding
// curve trade.
type PumpfunTradeEvent struct {
	Mint                 solana.PublicKey
	SolAmount            uint64
	TokenAmount          uint64
	IsBuy                bool
	User                 solana.PublicKey
	Timestamp            int64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
}

// Anchor event discriminator (8-byte event tag + 8-byte TradeEvent id).
var pumpfunTradeEventDiscriminator = [16]byte{228, 69, 165, 46, 81, 203, 154, 29, 189, 219, 127, 211, 78, 230, 97, 238}

type pumpfunParser struct{}

func (pumpfunParser) dex() Dex { return DexPumpFun }

// parse prefers the emitted trade event, which states direction and both
// amounts authoritatively. Without it, an explicit "Instruction: Buy"/"Sell"
// log line fixes the direction and amounts come from balance deltas.
func (p pumpfunParser) parse(r *Record) *TradeOutcome {
	if event := findPumpfunTradeEvent(r); event != nil {
		return p.outcomeFromEvent(r, event)
	}

	dir, ok := LogStatedDirection(r)
	if !ok {
		return nil
	}
	return outcomeFromLogDirection(r, dir, DexPumpFun)
}

func (p pumpfunParser) outcomeFromEvent(r *Record, event *PumpfunTradeEvent) *TradeOutcome {
	mint := event.Mint.String()
	decimals := r.DecimalsFor(mint)
	token := TokenAmount{
		Mint:     mint,
		Amount:   float64(event.TokenAmount) / math.Pow10(int(decimals)),
		Decimals: decimals,
	}
	native := float64(event.SolAmount) / lamportsPerSOL

	var out *TradeOutcome
	if event.IsBuy {
		out = newBuy(native, token)
	} else {
		out = newSell(token, native)
	}
	out.Holder = event.User.String()
	return out.stamp(r, DexPumpFun, SourceDex)
}

func findPumpfunTradeEvent(r *Record) *PumpfunTradeEvent {
	for _, inst := range r.allInnerInstructions() {
		if !r.programIDFor(inst).Equals(PumpFunProgramID) || len(inst.Data) == 0 {
			continue
		}
		raw, err := base58.Decode(inst.Data.String())
		if err != nil || len(raw) < 16 {
			continue
		}
		if !bytes.Equal(raw[:16], pumpfunTradeEventDiscriminator[:]) {
			continue
		}
		var event PumpfunTradeEvent
		if err := ag_binary.NewBorshDecoder(raw[16:]).Decode(&event); err != nil {
			continue
		}
		return &event
	}
	return nil
}

// LogStatedDirection reports a trade direction the program logs state
// outright. An explicit instruction log is authoritative over any direction
// inferred from balance deltas.
func LogStatedDirection(r *Record) (TradeType, bool) {
	joined := strings.ToLower(strings.Join(r.logMessages(), "\n"))
	switch {
	case strings.Contains(joined, "instruction: sell"):
		return TradeSell, true
	case strings.Contains(joined, "instruction: buy"):
		return TradeBuy, true
	}
	return "", false
}

// outcomeFromLogDirection pairs a log-stated direction with the acting
// wallet's balance deltas.
func outcomeFromLogDirection(r *Record, dir TradeType, dex Dex) *TradeOutcome {
	holder := actingWallet(r)
	if holder == "" {
		return nil
	}

	token, ok := dominantTokenDelta(r, holder)
	if !ok {
		return nil
	}
	native := nativeTotals(r)

	var out *TradeOutcome
	switch dir {
	case TradeBuy:
		out = newBuy(native.spent, token)
	case TradeSell:
		out = newSell(token, native.received)
	default:
		return nil
	}
	out.Holder = holder
	out.Note = "direction from program log"
	return out.stamp(r, dex, SourceDex)
}

// dominantTokenDelta picks the largest-magnitude non-native token delta owned
// by the holder, falling back to any owner when the holder has none.
func dominantTokenDelta(r *Record, holder string) (TokenAmount, bool) {
	var best *TokenDelta
	pick := func(deltas []TokenDelta, ownerOnly bool) {
		for i := range deltas {
			d := &deltas[i]
			if isNativeMint(d.Mint) {
				continue
			}
			if ownerOnly && d.Owner != holder {
				continue
			}
			if best == nil || math.Abs(d.Change) > math.Abs(best.Change) {
				best = d
			}
		}
	}
	deltas := r.TokenDeltas()
	pick(deltas, true)
	if best == nil {
		pick(deltas, false)
	}
	if best == nil {
		return TokenAmount{}, false
	}
	return TokenAmount{
		Mint:     best.Mint,
		Amount:   math.Abs(best.Change),
		Decimals: best.Decimals,
	}, true
}
