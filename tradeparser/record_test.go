package tradeparser

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordFromPartsNilTransaction(t *testing.T) {
	_, err := NewRecordFromParts(nil, nil, 0, 0)
	assert.Error(t, err)
}

func TestAssembleAccountsFlags(t *testing.T) {
	k := []solana.PublicKey{
		testKey(1), // writable signer
		testKey(2), // readonly signer
		testKey(3), // writable
		testKey(4), // readonly
	}
	loadedW := testKey(5)
	loadedR := testKey(6)

	tx := &solana.Transaction{
		Signatures: []solana.Signature{testSig(1)},
		Message: solana.Message{
			Header: solana.MessageHeader{
				NumRequiredSignatures:       2,
				NumReadonlySignedAccounts:   1,
				NumReadonlyUnsignedAccounts: 1,
			},
			AccountKeys: k,
		},
	}
	meta := &rpc.TransactionMeta{
		LoadedAddresses: rpc.LoadedAddresses{
			Writable: []solana.PublicKey{loadedW},
			ReadOnly: []solana.PublicKey{loadedR},
		},
	}

	rec, err := NewRecordFromParts(tx, meta, 1, 0)
	require.NoError(t, err)

	accounts := rec.Accounts()
	require.Len(t, accounts, 6)

	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[0].IsWritable)
	assert.True(t, accounts[1].IsSigner)
	assert.False(t, accounts[1].IsWritable)
	assert.False(t, accounts[2].IsSigner)
	assert.True(t, accounts[2].IsWritable)
	assert.False(t, accounts[3].IsSigner)
	assert.False(t, accounts[3].IsWritable)

	assert.Equal(t, loadedW, accounts[4].Address)
	assert.True(t, accounts[4].IsWritable)
	assert.False(t, accounts[4].IsSigner)
	assert.Equal(t, loadedR, accounts[5].Address)
	assert.False(t, accounts[5].IsWritable)
	assert.False(t, accounts[5].IsSigner)
}

func TestDecimalsForSeedsNative(t *testing.T) {
	rec := txFixture{
		sig:     testSig(1),
		keys:    []solana.PublicKey{walletKey},
		signers: 1,
	}.record(t)

	assert.Equal(t, uint8(NativeDecimals), rec.DecimalsFor(NativeSOLMintProgramID.String()))
	assert.Equal(t, uint8(0), rec.DecimalsFor(mintAKey.String()))
}

func TestExtractSPLTokenInfoBackfillsTransfer(t *testing.T) {
	// Only the source account appears in the balance rows; a plain Transfer
	// teaches us the destination's mint.
	src := testKey(0x40)
	dst := testKey(0x41)

	rec := txFixture{
		sig:     testSig(1),
		keys:    []solana.PublicKey{walletKey, src, dst, solana.TokenProgramID},
		signers: 1,
		insts: []solana.CompiledInstruction{
			{ProgramIDIndex: 3, Accounts: []uint16{1, 2, 0}, Data: transferData(1_000_000)},
		},
		meta: &rpc.TransactionMeta{
			PreTokenBalances: []rpc.TokenBalance{
				tokBal(1, mintAKey, walletKey, "1000000", 6),
			},
		},
	}.record(t)

	assert.Equal(t, mintAKey.String(), rec.splTokenInfoMap[dst.String()].Mint)
}

func TestRecordFields(t *testing.T) {
	rec := buyFixture(testSig(0x7F)).record(t)

	assert.Equal(t, testSig(0x7F).String(), rec.Signature)
	assert.Equal(t, uint64(1234), rec.Slot)
	assert.Equal(t, int64(1_700_000_000), rec.BlockTime)
	assert.Equal(t, uint64(5000), rec.Fee())
	assert.Equal(t, walletKey.String(), rec.feePayer())
}
