package tradeparser

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActingWalletPrefersSignerWithTokenDelta(t *testing.T) {
	feePayer := testKey(0x10)
	trader := testKey(0x11)
	traderToken := testKey(0x12)

	rec := txFixture{
		sig:     testSig(1),
		keys:    []solana.PublicKey{feePayer, trader, traderToken},
		signers: 2,
		meta: &rpc.TransactionMeta{
			PreBalances:  []uint64{0, 0, 0},
			PostBalances: []uint64{0, 0, 0},
			PostTokenBalances: []rpc.TokenBalance{
				tokBal(2, mintAKey, trader, "1000000", 6),
			},
		},
	}.record(t)

	assert.Equal(t, trader.String(), actingWallet(rec))
}

func TestActingWalletFallsBackToNativeMover(t *testing.T) {
	a := testKey(0x10)
	b := testKey(0x11)

	rec := txFixture{
		sig:     testSig(1),
		keys:    []solana.PublicKey{a, b},
		signers: 0,
		meta: &rpc.TransactionMeta{
			PreBalances:  []uint64{1_000_000_000, 5_000_000_000},
			PostBalances: []uint64{1_200_000_000, 4_000_000_000},
		},
	}.record(t)

	assert.Equal(t, b.String(), actingWallet(rec))
}

func TestGenericTransferSingleDelta(t *testing.T) {
	rec := txFixture{
		sig:     testSig(1),
		keys:    []solana.PublicKey{walletKey, walletTokenKey},
		signers: 1,
		meta: &rpc.TransactionMeta{
			PreBalances:  []uint64{1_000_000_000, 2_039_280},
			PostBalances: []uint64{1_000_000_000, 2_039_280},
			PreTokenBalances: []rpc.TokenBalance{
				tokBal(1, mintAKey, walletKey, "10000000", 6),
			},
			PostTokenBalances: []rpc.TokenBalance{
				tokBal(1, mintAKey, walletKey, "0", 6),
			},
		},
	}.record(t)

	out := genericStrategy{}.Classify(context.Background(), rec)
	require.NotNil(t, out)
	assert.Equal(t, TradeTransfer, out.Type)
	require.NotNil(t, out.Sold)
	assert.InDelta(t, 10.0, out.Sold.Amount, 1e-9)
	assert.Nil(t, out.Bought)
	assert.Nil(t, out.Price)
	assert.Equal(t, walletKey.String(), out.Holder)
}

func TestGenericRepresentativePairNote(t *testing.T) {
	// Several movements, none owned by the signer: the largest in/out pair
	// across all owners stands in for the trade.
	ownerA := testKey(0x20)
	ownerB := testKey(0x21)
	acctA := testKey(0x22)
	acctB := testKey(0x23)
	acctC := testKey(0x24)

	rec := txFixture{
		sig:     testSig(1),
		keys:    []solana.PublicKey{walletKey, acctA, acctB, acctC},
		signers: 1,
		meta: &rpc.TransactionMeta{
			PreBalances:  []uint64{0, 0, 0, 0},
			PostBalances: []uint64{0, 0, 0, 0},
			PreTokenBalances: []rpc.TokenBalance{
				tokBal(1, mintAKey, ownerA, "300000000", 6),
				tokBal(2, mintAKey, ownerB, "100000000", 6),
				tokBal(3, mintBKey, ownerA, "0", 9),
			},
			PostTokenBalances: []rpc.TokenBalance{
				tokBal(1, mintAKey, ownerA, "0", 6),
				tokBal(2, mintAKey, ownerB, "50000000", 6),
				tokBal(3, mintBKey, ownerA, "25000000000", 9),
			},
		},
	}.record(t)

	out := genericStrategy{}.Classify(context.Background(), rec)
	require.NotNil(t, out)
	assert.Equal(t, TradeSwap, out.Type)
	assert.Equal(t, "multiple changes, representative pair selected", out.Note)
	require.NotNil(t, out.Sold)
	assert.Equal(t, mintAKey.String(), out.Sold.Mint)
	assert.InDelta(t, 300.0, out.Sold.Amount, 1e-9)
	require.NotNil(t, out.Bought)
	assert.Equal(t, mintBKey.String(), out.Bought.Mint)
	assert.InDelta(t, 25.0, out.Bought.Amount, 1e-9)
}

func TestNativeTotalsFoldsWrappedSOL(t *testing.T) {
	wsolAcct := testKey(0x30)
	rec := txFixture{
		sig:     testSig(1),
		keys:    []solana.PublicKey{walletKey, wsolAcct, walletTokenKey},
		signers: 1,
		meta: &rpc.TransactionMeta{
			PreBalances:  []uint64{2_000_000_000, 0, 0},
			PostBalances: []uint64{1_500_000_000, 0, 0},
			PreTokenBalances: []rpc.TokenBalance{
				tokBal(1, NativeSOLMintProgramID, walletKey, "1000000000", 9),
				tokBal(2, mintAKey, walletKey, "0", 6),
			},
			PostTokenBalances: []rpc.TokenBalance{
				tokBal(1, NativeSOLMintProgramID, walletKey, "0", 9),
				tokBal(2, mintAKey, walletKey, "900000000", 6),
			},
		},
	}.record(t)

	sum := nativeTotals(rec)
	// 0.5 SOL lamports plus 1 wrapped SOL both count as spend.
	assert.InDelta(t, 1.5, sum.spent, 1e-9)
	assert.Zero(t, sum.received)
}
