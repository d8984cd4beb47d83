package tradeparser

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Account is the normalized view of one transaction account. RPC payloads
// carry account metadata in several shapes; everything downstream works off
// this one representation.
type Account struct {
	Address    solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

// TokenInfo maps a token account to its mint and precision.
type TokenInfo struct {
	Mint     string
	Decimals uint8
}

// Record is a decoded transaction plus the derived lookup maps the
// classification strategies share. It is request-scoped and immutable once
// built.
type Record struct {
	tx   *solana.Transaction
	meta *rpc.TransactionMeta

	Signature string
	Slot      uint64
	BlockTime int64

	accounts        []Account
	splTokenInfoMap map[string]TokenInfo
	splDecimalsMap  map[string]uint8
}

// NewRecord decodes an rpc getTransaction result into a Record.
func NewRecord(res *rpc.GetTransactionResult) (*Record, error) {
	if res == nil || res.Transaction == nil {
		return nil, fmt.Errorf("empty transaction result")
	}
	tx, err := res.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	var blockTime int64
	if res.BlockTime != nil {
		blockTime = int64(*res.BlockTime)
	}
	return NewRecordFromParts(tx, res.Meta, res.Slot, blockTime)
}

// NewRecordFromParts builds a Record from an already-decoded transaction and
// its meta. A nil meta is tolerated; the extractors then yield empty deltas.
func NewRecordFromParts(tx *solana.Transaction, meta *rpc.TransactionMeta, slot uint64, blockTime int64) (*Record, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction")
	}

	r := &Record{
		tx:        tx,
		meta:      meta,
		Slot:      slot,
		BlockTime: blockTime,
	}
	if len(tx.Signatures) > 0 {
		r.Signature = tx.Signatures[0].String()
	}

	r.accounts = assembleAccounts(tx, meta)
	r.extractSPLTokenInfo()
	r.extractSPLDecimals()
	return r, nil
}

// assembleAccounts appends loaded (address-lookup-table) addresses after the
// message keys: writable first, then read-only, matching runtime ordering.
// Loaded addresses never sign.
func assembleAccounts(tx *solana.Transaction, meta *rpc.TransactionMeta) []Account {
	header := tx.Message.Header
	keys := tx.Message.AccountKeys

	numSigned := int(header.NumRequiredSignatures)
	numReadonlySigned := int(header.NumReadonlySignedAccounts)
	numReadonlyUnsigned := int(header.NumReadonlyUnsignedAccounts)

	accounts := make([]Account, 0, len(keys))
	for i, key := range keys {
		signer := i < numSigned
		var writable bool
		if signer {
			writable = i < numSigned-numReadonlySigned
		} else {
			writable = i < len(keys)-numReadonlyUnsigned
		}
		accounts = append(accounts, Account{Address: key, IsSigner: signer, IsWritable: writable})
	}

	if meta != nil {
		for _, key := range meta.LoadedAddresses.Writable {
			accounts = append(accounts, Account{Address: key, IsWritable: true})
		}
		for _, key := range meta.LoadedAddresses.ReadOnly {
			accounts = append(accounts, Account{Address: key})
		}
	}
	return accounts
}

// Accounts returns the full normalized account list (message keys plus loaded
// addresses, positionally aligned with pre/post balances).
func (r *Record) Accounts() []Account {
	return r.accounts
}

// Fee returns the transaction fee in lamports.
func (r *Record) Fee() uint64 {
	if r.meta == nil {
		return 0
	}
	return r.meta.Fee
}

func (r *Record) accountAt(idx int) (Account, bool) {
	if idx < 0 || idx >= len(r.accounts) {
		return Account{}, false
	}
	return r.accounts[idx], true
}

// feePayer is the first required signer.
func (r *Record) feePayer() string {
	if len(r.accounts) == 0 {
		return ""
	}
	return r.accounts[0].Address.String()
}

func (r *Record) logMessages() []string {
	if r.meta == nil {
		return nil
	}
	return r.meta.LogMessages
}

func (r *Record) topLevelInstructions() []solana.CompiledInstruction {
	return r.tx.Message.Instructions
}

// toMessageInstruction bridges the rpc package's CompiledInstruction to the
// message flavor; the two structs carry identical fields.
func toMessageInstruction(in rpc.CompiledInstruction) solana.CompiledInstruction {
	return solana.CompiledInstruction{
		ProgramIDIndex: in.ProgramIDIndex,
		Accounts:       in.Accounts,
		Data:           in.Data,
	}
}

func toMessageInstructions(in []rpc.CompiledInstruction) []solana.CompiledInstruction {
	out := make([]solana.CompiledInstruction, len(in))
	for i, inst := range in {
		out[i] = toMessageInstruction(inst)
	}
	return out
}

// innerInstructionsFor returns the inner set executed under the given
// top-level instruction index.
func (r *Record) innerInstructionsFor(index int) []solana.CompiledInstruction {
	if r.meta == nil {
		return nil
	}
	for _, inner := range r.meta.InnerInstructions {
		if inner.Index == uint16(index) {
			return toMessageInstructions(inner.Instructions)
		}
	}
	return nil
}

// allInnerInstructions flattens every inner set in execution order.
func (r *Record) allInnerInstructions() []solana.CompiledInstruction {
	if r.meta == nil {
		return nil
	}
	var out []solana.CompiledInstruction
	for _, inner := range r.meta.InnerInstructions {
		out = append(out, toMessageInstructions(inner.Instructions)...)
	}
	return out
}

func (r *Record) programIDFor(inst solana.CompiledInstruction) solana.PublicKey {
	acct, ok := r.accountAt(int(inst.ProgramIDIndex))
	if !ok {
		return solana.PublicKey{}
	}
	return acct.Address
}

func isTokenProgram(pk solana.PublicKey) bool {
	return pk.Equals(solana.TokenProgramID) || pk.Equals(solana.Token2022ProgramID)
}

// extractSPLTokenInfo builds token-account → (mint, decimals) from both PRE
// and POST balances, then backfills from Transfer(3)/TransferChecked(12)
// instructions when one side of a transfer is already known.
func (r *Record) extractSPLTokenInfo() {
	info := make(map[string]TokenInfo)
	r.splTokenInfoMap = info
	if r.meta == nil {
		return
	}

	seed := func(balances []rpc.TokenBalance) {
		for _, b := range balances {
			if b.Mint.IsZero() || b.UiTokenAmount == nil {
				continue
			}
			acct, ok := r.accountAt(int(b.AccountIndex))
			if !ok {
				continue
			}
			info[acct.Address.String()] = TokenInfo{
				Mint:     b.Mint.String(),
				Decimals: b.UiTokenAmount.Decimals,
			}
		}
	}
	seed(r.meta.PreTokenBalances)
	seed(r.meta.PostTokenBalances)

	process := func(inst solana.CompiledInstruction) {
		if !isTokenProgram(r.programIDFor(inst)) || len(inst.Data) == 0 || len(inst.Accounts) < 2 {
			return
		}
		op := inst.Data[0]
		srcAcct, ok1 := r.accountAt(int(inst.Accounts[0]))
		dstAcct, ok2 := r.accountAt(int(inst.Accounts[1]))
		if !ok1 || !ok2 {
			return
		}
		source := srcAcct.Address.String()
		destination := dstAcct.Address.String()

		// TransferChecked(12): accounts = [src, mint, dst, authority]
		if op == 12 && len(inst.Accounts) >= 3 {
			mint := destination // account[1] is the mint
			if realDst, ok := r.accountAt(int(inst.Accounts[2])); ok {
				destination = realDst.Address.String()
			}
			if ti := info[source]; ti.Mint == "" {
				info[source] = TokenInfo{Mint: mint, Decimals: ti.Decimals}
			}
			if ti := info[destination]; ti.Mint == "" {
				info[destination] = TokenInfo{Mint: mint, Decimals: ti.Decimals}
			}
		}

		// Transfer(3): both sides share a mint; propagate the known one.
		if op == 3 {
			sInfo := info[source]
			dInfo := info[destination]
			switch {
			case sInfo.Mint != "" && dInfo.Mint == "":
				info[destination] = TokenInfo{Mint: sInfo.Mint, Decimals: dInfo.Decimals}
			case dInfo.Mint != "" && sInfo.Mint == "":
				info[source] = TokenInfo{Mint: dInfo.Mint, Decimals: sInfo.Decimals}
			}
		}
	}

	for _, inst := range r.topLevelInstructions() {
		process(inst)
	}
	for _, inst := range r.allInnerInstructions() {
		process(inst)
	}
}

// extractSPLDecimals builds the mint → decimals map.
func (r *Record) extractSPLDecimals() {
	decimals := make(map[string]uint8)
	r.splDecimalsMap = decimals

	if r.meta != nil {
		for _, b := range r.meta.PostTokenBalances {
			if !b.Mint.IsZero() && b.UiTokenAmount != nil {
				decimals[b.Mint.String()] = b.UiTokenAmount.Decimals
			}
		}
		for _, b := range r.meta.PreTokenBalances {
			if b.Mint.IsZero() || b.UiTokenAmount == nil {
				continue
			}
			if _, ok := decimals[b.Mint.String()]; !ok {
				decimals[b.Mint.String()] = b.UiTokenAmount.Decimals
			}
		}
	}

	if _, ok := decimals[NativeSOLMintProgramID.String()]; !ok {
		decimals[NativeSOLMintProgramID.String()] = NativeDecimals
	}
}

// DecimalsFor resolves a mint's precision when the transaction revealed it.
func (r *Record) DecimalsFor(mint string) uint8 {
	return r.splDecimalsMap[mint]
}
