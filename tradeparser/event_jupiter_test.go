package tradeparser

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jupiterRecord(t *testing.T, legs []JupiterSwapEvent) *Record {
	insts := make([]rpc.CompiledInstruction, 0, len(legs))
	for i := range legs {
		insts = append(insts, rpc.CompiledInstruction{
			ProgramIDIndex: 2,
			Data:           encodeAnchorEvent(t, jupiterRouteEventDiscriminator, &legs[i]),
		})
	}

	return txFixture{
		sig:     testSig(0x22),
		keys:    []solana.PublicKey{walletKey, walletTokenKey, JupiterV6ProgramID},
		signers: 1,
		insts:   []solana.CompiledInstruction{{ProgramIDIndex: 2}},
		meta: &rpc.TransactionMeta{
			PreBalances:  []uint64{0, 0, 0},
			PostBalances: []uint64{0, 0, 0},
			InnerInstructions: []rpc.InnerInstruction{
				{Index: 0, Instructions: insts},
			},
			PostTokenBalances: []rpc.TokenBalance{
				tokBal(1, mintAKey, walletKey, "1000000000000", 6),
			},
		},
	}.record(t)
}

func TestJupiterParseAggregatesLegs(t *testing.T) {
	amm := testKey(0x60)
	rec := jupiterRecord(t, []JupiterSwapEvent{
		{
			Amm:          amm,
			InputMint:    NativeSOLMintProgramID,
			InputAmount:  1_000_000_000,
			OutputMint:   mintAKey,
			OutputAmount: 400_000_000_000,
		},
		{
			Amm:          amm,
			InputMint:    NativeSOLMintProgramID,
			InputAmount:  500_000_000,
			OutputMint:   mintAKey,
			OutputAmount: 600_000_000_000,
		},
	})

	out := jupiterParser{}.parse(rec)
	require.NotNil(t, out)
	assert.Equal(t, TradeBuy, out.Type)
	assert.Equal(t, DexJupiter, out.Dex)
	assert.Equal(t, SourceDex, out.Source)
	assert.Equal(t, walletKey.String(), out.Holder)

	assert.InDelta(t, 1.5, out.Sold.Amount, 1e-9)
	assert.InDelta(t, 1_000_000, out.Bought.Amount, 1e-3)
	require.NotNil(t, out.Price)
	assert.InDelta(t, 1.5e-6, *out.Price, 1e-15)
}

func TestJupiterParseNoEvents(t *testing.T) {
	rec := jupiterRecord(t, nil)
	assert.Nil(t, jupiterParser{}.parse(rec))
}
