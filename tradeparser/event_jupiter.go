package tradeparser

import (
	"bytes"
	"math"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// JupiterSwapEvent is one leg of a Jupiter route, emitted per CPI hop.
type JupiterSwapEvent struct {
	Amm          solana.PublicKey
	InputMint    solana.PublicKey
	InputAmount  uint64
	OutputMint   solana.PublicKey
	OutputAmount uint64
}

var jupiterRouteEventDiscriminator = [16]byte{228, 69, 165, 46, 81, 203, 154, 29, 64, 198, 205, 232, 38, 8, 113, 226}

type jupiterParser struct{}

func (jupiterParser) dex() Dex { return DexJupiter }

// parse aggregates every route-event leg into one net in/out pair. All legs
// of a route share the route-level input/output mints; stray legs that don't
// are ignored when summing.
func (jupiterParser) parse(r *Record) *TradeOutcome {
	var (
		have              bool
		totalIn, totalOut uint64
		inMint, outMint   solana.PublicKey
	)

	for _, inst := range r.allInnerInstructions() {
		if !r.programIDFor(inst).Equals(JupiterV6ProgramID) || len(inst.Data) == 0 {
			continue
		}
		raw, err := base58.Decode(inst.Data.String())
		if err != nil || len(raw) < 16 {
			continue
		}
		if !bytes.Equal(raw[:16], jupiterRouteEventDiscriminator[:]) {
			continue
		}
		var leg JupiterSwapEvent
		if err := ag_binary.NewBorshDecoder(raw[16:]).Decode(&leg); err != nil {
			continue
		}

		if !have {
			inMint, outMint = leg.InputMint, leg.OutputMint
			have = true
		}
		if leg.InputMint.Equals(inMint) {
			totalIn += leg.InputAmount
		}
		if leg.OutputMint.Equals(outMint) {
			totalOut += leg.OutputAmount
		}
	}

	if !have || totalIn == 0 || totalOut == 0 {
		return nil
	}

	out := pairedOutcome(r,
		rawLeg{mint: inMint.String(), amount: totalIn},
		rawLeg{mint: outMint.String(), amount: totalOut},
	)
	if out == nil {
		return nil
	}
	out.Holder = r.feePayer()
	return out.stamp(r, DexJupiter, SourceDex)
}

// rawLeg is an in/out side in base units; decimals resolve via the record.
type rawLeg struct {
	mint   string
	amount uint64
}

// pairedOutcome turns an (input, output) pair into a Buy, Sell or Swap by
// which side is the native asset. Both sides native means there is nothing to
// classify.
func pairedOutcome(r *Record, in, out rawLeg) *TradeOutcome {
	inDec := r.DecimalsFor(in.mint)
	outDec := r.DecimalsFor(out.mint)
	inUI := float64(in.amount) / math.Pow10(int(inDec))
	outUI := float64(out.amount) / math.Pow10(int(outDec))

	inNative := isNativeMint(in.mint)
	outNative := isNativeMint(out.mint)

	switch {
	case inNative && !outNative:
		return newBuy(inUI, TokenAmount{Mint: out.mint, Amount: outUI, Decimals: outDec})
	case outNative && !inNative:
		return newSell(TokenAmount{Mint: in.mint, Amount: inUI, Decimals: inDec}, outUI)
	case !inNative && !outNative:
		return newSwap(
			TokenAmount{Mint: in.mint, Amount: inUI, Decimals: inDec},
			TokenAmount{Mint: out.mint, Amount: outUI, Decimals: outDec},
		)
	}
	return nil
}
