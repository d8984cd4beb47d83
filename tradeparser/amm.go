package tradeparser

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// tokenMove is one Transfer(3)/TransferChecked(12) CPI, in base units.
type tokenMove struct {
	mint        string
	amount      uint64
	decimals    uint8
	source      string
	destination string
	authority   string
}

// ammParser handles protocols whose swaps are reconstructed from the token
// transfers CPI'd under the pool instruction: Raydium, Orca, Meteora, the
// pump.fun AMM and Moonshot, plus anything routed into them.
type ammParser struct {
	name     Dex
	programs []solana.PublicKey
}

func (a ammParser) dex() Dex { return a.name }

func (a ammParser) parse(r *Record) *TradeOutcome {
	moves := a.harvestMoves(r)
	if len(moves) == 0 {
		return nil
	}

	signer := actingWallet(r)
	if signer == "" {
		signer = r.feePayer()
	}
	signerAccounts := r.tokenAccountsOwnedBy(signer)

	// Inputs: transfers authorized by the signer, or leaving a signer-owned
	// token account. Outputs: transfers credited to a signer-owned account.
	inputTotals := make(map[string]uint64)
	outputTotals := make(map[string]uint64)
	for _, m := range moves {
		if m.mint == "" {
			continue
		}
		if m.authority == signer || signerAccounts[m.source] {
			inputTotals[m.mint] += m.amount
		}
		if signerAccounts[m.destination] {
			outputTotals[m.mint] += m.amount
		}
	}

	inMint, inAmt := dominantEntry(inputTotals)
	outMint, outAmt := dominantEntry(outputTotals)

	// Same mint on both sides happens on rent top-ups and wrap/unwrap churn;
	// a first-vs-last fallback covers swaps where the signer's accounts never
	// show up (intermediate custody accounts).
	if inMint == "" || outMint == "" || inMint == outMint {
		inMint, inAmt, outMint, outAmt = firstLastPair(moves)
	}
	if inMint == "" || outMint == "" || inMint == outMint {
		return nil
	}

	out := pairedOutcome(r,
		rawLeg{mint: inMint, amount: inAmt},
		rawLeg{mint: outMint, amount: outAmt},
	)
	if out == nil {
		return nil
	}
	out.Holder = signer
	return out.stamp(r, a.name, SourceDex)
}

// harvestMoves collects token transfers under every top-level instruction
// that belongs to this protocol, directly or via an inner CPI.
func (a ammParser) harvestMoves(r *Record) []tokenMove {
	var moves []tokenMove
	for i, inst := range r.topLevelInstructions() {
		matched := a.matches(r.programIDFor(inst))
		inner := r.innerInstructionsFor(i)
		if !matched {
			for _, in := range inner {
				if a.matches(r.programIDFor(in)) {
					matched = true
					break
				}
			}
		}
		if !matched {
			continue
		}
		for _, in := range inner {
			if m, ok := r.decodeTokenMove(in); ok {
				moves = append(moves, m)
			}
		}
	}
	return moves
}

func (a ammParser) matches(pid solana.PublicKey) bool {
	for _, p := range a.programs {
		if pid.Equals(p) {
			return true
		}
	}
	return false
}

// decodeTokenMove reads a Transfer(3) or TransferChecked(12) instruction.
func (r *Record) decodeTokenMove(inst solana.CompiledInstruction) (tokenMove, bool) {
	if !isTokenProgram(r.programIDFor(inst)) || len(inst.Data) < 9 {
		return tokenMove{}, false
	}
	amount := binary.LittleEndian.Uint64(inst.Data[1:9])

	addr := func(pos int) string {
		if pos >= len(inst.Accounts) {
			return ""
		}
		acct, ok := r.accountAt(int(inst.Accounts[pos]))
		if !ok {
			return ""
		}
		return acct.Address.String()
	}

	switch inst.Data[0] {
	case 3: // Transfer: [source, destination, authority]
		if len(inst.Accounts) < 3 {
			return tokenMove{}, false
		}
		m := tokenMove{
			amount:      amount,
			source:      addr(0),
			destination: addr(1),
			authority:   addr(2),
		}
		// Mint is not on the wire for plain transfers; resolve via the
		// destination account first, then the source.
		if ti := r.splTokenInfoMap[m.destination]; ti.Mint != "" {
			m.mint, m.decimals = ti.Mint, ti.Decimals
		} else if ti := r.splTokenInfoMap[m.source]; ti.Mint != "" {
			m.mint, m.decimals = ti.Mint, ti.Decimals
		}
		return m, true
	case 12: // TransferChecked: [source, mint, destination, authority]
		if len(inst.Accounts) < 4 {
			return tokenMove{}, false
		}
		m := tokenMove{
			amount:      amount,
			source:      addr(0),
			mint:        addr(1),
			destination: addr(2),
			authority:   addr(3),
		}
		m.decimals = r.DecimalsFor(m.mint)
		return m, true
	}
	return tokenMove{}, false
}

// tokenAccountsOwnedBy returns the token accounts whose pre/post balance rows
// name the owner.
func (r *Record) tokenAccountsOwnedBy(owner string) map[string]bool {
	accounts := make(map[string]bool)
	if r.meta == nil || owner == "" {
		return accounts
	}
	add := func(balances []rpc.TokenBalance) {
		for _, b := range balances {
			if b.Owner == nil || b.Owner.String() != owner {
				continue
			}
			if acct, ok := r.accountAt(int(b.AccountIndex)); ok {
				accounts[acct.Address.String()] = true
			}
		}
	}
	add(r.meta.PreTokenBalances)
	add(r.meta.PostTokenBalances)
	return accounts
}

func dominantEntry(totals map[string]uint64) (string, uint64) {
	var mint string
	var amt uint64
	for k, v := range totals {
		if v > amt {
			mint, amt = k, v
		}
	}
	return mint, amt
}

// firstLastPair treats the first transferred mint as the input and the last
// distinct mint as the output, summing per mint.
func firstLastPair(moves []tokenMove) (inMint string, inAmt uint64, outMint string, outAmt uint64) {
	var order []string
	seen := make(map[string]bool)
	totals := make(map[string]uint64)
	for _, m := range moves {
		if m.mint == "" {
			continue
		}
		if !seen[m.mint] {
			seen[m.mint] = true
			order = append(order, m.mint)
		}
		totals[m.mint] += m.amount
	}
	if len(order) < 2 {
		return "", 0, "", 0
	}
	inMint, outMint = order[0], order[len(order)-1]
	return inMint, totals[inMint], outMint, totals[outMint]
}
