package tradeparser

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
)

// testKey returns a deterministic public key tagged by its first byte.
func testKey(tag byte) solana.PublicKey {
	var b [32]byte
	b[0] = tag
	b[31] = 1
	return solana.PublicKeyFromBytes(b[:])
}

func testSig(tag byte) solana.Signature {
	var s solana.Signature
	s[0] = tag
	s[63] = 1
	return s
}

// txFixture assembles a Record from hand-built pieces. All keys are writable;
// the first `signers` keys sign.
type txFixture struct {
	sig     solana.Signature
	keys    []solana.PublicKey
	signers int
	insts   []solana.CompiledInstruction
	meta    *rpc.TransactionMeta
}

func (f txFixture) record(t *testing.T) *Record {
	t.Helper()
	tx := &solana.Transaction{
		Signatures: []solana.Signature{f.sig},
		Message: solana.Message{
			Header: solana.MessageHeader{
				NumRequiredSignatures: uint8(f.signers),
			},
			AccountKeys:  f.keys,
			Instructions: f.insts,
		},
	}
	rec, err := NewRecordFromParts(tx, f.meta, 1234, 1_700_000_000)
	require.NoError(t, err)
	return rec
}

func tokBal(idx uint16, mint, owner solana.PublicKey, raw string, decimals uint8) rpc.TokenBalance {
	o := owner
	return rpc.TokenBalance{
		AccountIndex: idx,
		Mint:         mint,
		Owner:        &o,
		UiTokenAmount: &rpc.UiTokenAmount{
			Amount:   raw,
			Decimals: decimals,
		},
	}
}

var (
	walletKey      = testKey(0x01)
	walletTokenKey = testKey(0x02)
	poolKey        = testKey(0x03)
	mintAKey       = testKey(0xA0)
	mintBKey       = testKey(0xB0)
)

// buyFixture: the signer spends 1.5 SOL and receives 1,000,000 of mint A
// (6 decimals). No known program is referenced, so classification falls to
// the generic heuristic.
func buyFixture(sig solana.Signature) txFixture {
	return txFixture{
		sig:     sig,
		keys:    []solana.PublicKey{walletKey, walletTokenKey, poolKey},
		signers: 1,
		meta: &rpc.TransactionMeta{
			Fee:          5000,
			PreBalances:  []uint64{5_000_000_000, 2_039_280, 10_000_000_000},
			PostBalances: []uint64{3_500_000_000, 2_039_280, 11_500_000_000},
			PreTokenBalances: []rpc.TokenBalance{
				tokBal(1, mintAKey, walletKey, "0", 6),
			},
			PostTokenBalances: []rpc.TokenBalance{
				tokBal(1, mintAKey, walletKey, "1000000000000", 6),
			},
		},
	}
}

// sellFixture: the signer sells 500,000 of mint A and receives 2 SOL.
func sellFixture(sig solana.Signature) txFixture {
	return txFixture{
		sig:     sig,
		keys:    []solana.PublicKey{walletKey, walletTokenKey, poolKey},
		signers: 1,
		meta: &rpc.TransactionMeta{
			Fee:          5000,
			PreBalances:  []uint64{1_000_000_000, 2_039_280, 10_000_000_000},
			PostBalances: []uint64{3_000_000_000, 2_039_280, 8_000_000_000},
			PreTokenBalances: []rpc.TokenBalance{
				tokBal(1, mintAKey, walletKey, "500000000000", 6),
			},
			PostTokenBalances: []rpc.TokenBalance{
				tokBal(1, mintAKey, walletKey, "0", 6),
			},
		},
	}
}

// swapFixture: 100 of mint A (6 decimals) out, 50 of mint B (9 decimals) in,
// no native movement.
func swapFixture(sig solana.Signature) txFixture {
	tokenB := testKey(0x04)
	return txFixture{
		sig:     sig,
		keys:    []solana.PublicKey{walletKey, walletTokenKey, tokenB, poolKey},
		signers: 1,
		meta: &rpc.TransactionMeta{
			Fee:          5000,
			PreBalances:  []uint64{1_000_000_000, 2_039_280, 2_039_280, 10_000_000_000},
			PostBalances: []uint64{1_000_000_000, 2_039_280, 2_039_280, 10_000_000_000},
			PreTokenBalances: []rpc.TokenBalance{
				tokBal(1, mintAKey, walletKey, "100000000", 6),
				tokBal(2, mintBKey, walletKey, "0", 9),
			},
			PostTokenBalances: []rpc.TokenBalance{
				tokBal(1, mintAKey, walletKey, "0", 6),
				tokBal(2, mintBKey, walletKey, "50000000000", 9),
			},
		},
	}
}
