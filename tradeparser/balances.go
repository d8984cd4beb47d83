package tradeparser

import (
	"math"
	"sort"
	"strconv"

	"github.com/gagliardetto/solana-go/rpc"
)

// TokenDelta is the net change of one (owner, mint) position across the
// transaction, in UI units.
type TokenDelta struct {
	Mint     string
	Owner    string
	Pre      float64
	Post     float64
	Change   float64
	Decimals uint8
}

// NativeDelta is the lamport balance change of one account, in UI units.
type NativeDelta struct {
	Account    string
	IsSigner   bool
	IsWritable bool
	Pre        float64
	Post       float64
	Change     float64
}

// tokenDust and nativeDustLamports are the extractor-level noise floors. The
// generic heuristic re-filters with its own threshold.
const (
	tokenDust          = 1e-6
	nativeDustLamports = 100_000
)

type ownerMint struct {
	owner string
	mint  string
}

// TokenDeltas computes per-(owner, mint) token balance changes. Positions are
// deduplicated across multiple token accounts of the same owner, and accounts
// that fully disappeared or newly appeared produce synthetic entries. Missing
// or malformed meta yields an empty slice.
func (r *Record) TokenDeltas() []TokenDelta {
	if r.meta == nil {
		return nil
	}

	type position struct {
		amount   float64
		decimals uint8
		seen     bool
	}

	collect := func(balances []rpc.TokenBalance) map[ownerMint]position {
		m := make(map[ownerMint]position)
		for _, b := range balances {
			if b.Mint.IsZero() || b.Owner == nil || b.UiTokenAmount == nil {
				continue
			}
			key := ownerMint{owner: b.Owner.String(), mint: b.Mint.String()}
			p := m[key]
			p.amount += uiAmount(b.UiTokenAmount)
			p.decimals = b.UiTokenAmount.Decimals
			p.seen = true
			m[key] = p
		}
		return m
	}

	pre := collect(r.meta.PreTokenBalances)
	post := collect(r.meta.PostTokenBalances)

	var deltas []TokenDelta
	emitted := make(map[ownerMint]bool)

	for key, p := range post {
		prePos := pre[key]
		change := p.amount - prePos.amount
		if math.Abs(change) <= tokenDust {
			continue
		}
		deltas = append(deltas, TokenDelta{
			Mint:     key.mint,
			Owner:    key.owner,
			Pre:      prePos.amount,
			Post:     p.amount,
			Change:   change,
			Decimals: p.decimals,
		})
		emitted[key] = true
	}

	// Positions that existed before but have no post entry: full exit.
	for key, p := range pre {
		if emitted[key] {
			continue
		}
		if _, stillThere := post[key]; stillThere {
			continue
		}
		if p.amount <= tokenDust {
			continue
		}
		deltas = append(deltas, TokenDelta{
			Mint:     key.mint,
			Owner:    key.owner,
			Pre:      p.amount,
			Post:     0,
			Change:   -p.amount,
			Decimals: p.decimals,
		})
		emitted[key] = true
	}

	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].Owner != deltas[j].Owner {
			return deltas[i].Owner < deltas[j].Owner
		}
		return deltas[i].Mint < deltas[j].Mint
	})
	return deltas
}

// NativeDeltas aligns pre/post lamport balances with the account list and
// reports changes above the dust floor, converted to UI units.
func (r *Record) NativeDeltas() []NativeDelta {
	if r.meta == nil {
		return nil
	}

	n := len(r.meta.PreBalances)
	if len(r.meta.PostBalances) < n {
		n = len(r.meta.PostBalances)
	}
	if len(r.accounts) < n {
		n = len(r.accounts)
	}

	var deltas []NativeDelta
	for i := 0; i < n; i++ {
		pre := r.meta.PreBalances[i]
		post := r.meta.PostBalances[i]
		var diff uint64
		if post > pre {
			diff = post - pre
		} else {
			diff = pre - post
		}
		if diff <= nativeDustLamports {
			continue
		}
		acct := r.accounts[i]
		deltas = append(deltas, NativeDelta{
			Account:    acct.Address.String(),
			IsSigner:   acct.IsSigner,
			IsWritable: acct.IsWritable,
			Pre:        float64(pre) / lamportsPerSOL,
			Post:       float64(post) / lamportsPerSOL,
			Change:     (float64(post) - float64(pre)) / lamportsPerSOL,
		})
	}
	return deltas
}

// uiAmount converts the raw base-unit string; the precomputed UiAmount float
// is only a fallback since some providers omit it.
func uiAmount(amt *rpc.UiTokenAmount) float64 {
	if amt == nil {
		return 0
	}
	if raw, err := strconv.ParseUint(amt.Amount, 10, 64); err == nil {
		return float64(raw) / math.Pow10(int(amt.Decimals))
	}
	if amt.UiAmount != nil {
		return *amt.UiAmount
	}
	return 0
}
