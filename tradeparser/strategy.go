package tradeparser

import (
	"context"
	"math"
)

// Strategy is one resolution layer of the classifier. Strategies return nil
// rather than an error when they cannot produce an outcome; the classifier
// then tries the next one.
type Strategy interface {
	Name() Source
	Classify(ctx context.Context, r *Record) *TradeOutcome
}

// actingWallet picks the account whose economic position the trade is
// attributed to: a signer owning a token delta, else any signer, else the
// account with the largest native movement.
func actingWallet(r *Record) string {
	signers := make(map[string]bool)
	for _, acct := range r.accounts {
		if acct.IsSigner {
			signers[acct.Address.String()] = true
		}
	}

	for _, d := range r.TokenDeltas() {
		if signers[d.Owner] {
			return d.Owner
		}
	}
	if len(r.accounts) > 0 && r.accounts[0].IsSigner {
		return r.accounts[0].Address.String()
	}
	for addr := range signers {
		return addr
	}

	var best string
	var bestMag float64
	for _, d := range r.NativeDeltas() {
		if mag := math.Abs(d.Change); mag > bestMag {
			best, bestMag = d.Account, mag
		}
	}
	return best
}

// nativeSummary aggregates the wallet-side native flows of a transaction.
// Wrapped-SOL token deltas owned by the actor count as native movement; a
// temporary WSOL account is just lamports in a different coat.
type nativeSummary struct {
	spent    float64
	received float64
}

func nativeTotals(r *Record) nativeSummary {
	actor := actingWallet(r)
	var sum nativeSummary
	for _, d := range r.NativeDeltas() {
		if !d.IsSigner && d.Account != actor {
			continue
		}
		if d.Change < 0 {
			sum.spent += -d.Change
		} else {
			sum.received += d.Change
		}
	}
	for _, d := range r.TokenDeltas() {
		if d.Owner != actor || !isNativeMint(d.Mint) {
			continue
		}
		if d.Change < 0 {
			sum.spent += -d.Change
		} else {
			sum.received += d.Change
		}
	}
	return sum
}

// genericStrategy is the last-resort balance-delta heuristic.
type genericStrategy struct {
	dust float64
}

func (genericStrategy) Name() Source { return SourceGeneric }

func (g genericStrategy) Classify(_ context.Context, r *Record) *TradeOutcome {
	dust := g.dust
	if dust <= 0 {
		dust = DefaultConfig().GenericDust
	}

	actor := actingWallet(r)
	if actor == "" {
		return nil
	}

	tokenDeltas := r.TokenDeltas()
	nativeDeltas := r.NativeDeltas()
	native := nativeTotals(r)

	// The actor's non-native token deltas, re-filtered at this path's floor.
	var pos, neg *TokenDelta
	var actorCount int
	for i := range tokenDeltas {
		d := &tokenDeltas[i]
		if d.Owner != actor || isNativeMint(d.Mint) || math.Abs(d.Change) <= dust {
			continue
		}
		actorCount++
		if d.Change > 0 && (pos == nil || d.Change > pos.Change) {
			pos = d
		}
		if d.Change < 0 && (neg == nil || d.Change < neg.Change) {
			neg = d
		}
	}

	asLeg := func(d *TokenDelta) TokenAmount {
		return TokenAmount{Mint: d.Mint, Amount: math.Abs(d.Change), Decimals: d.Decimals}
	}

	var out *TradeOutcome
	switch {
	case native.spent > dust && pos != nil:
		out = newBuy(native.spent, asLeg(pos))
	case native.received > dust && neg != nil:
		out = newSell(asLeg(neg), native.received)
	case neg != nil && pos != nil:
		out = newSwap(asLeg(neg), asLeg(pos))
	case len(tokenDeltas) == 1 && len(nativeDeltas) == 0:
		d := &tokenDeltas[0]
		out = newTransfer(asLeg(d), d.Change < 0)
	default:
		out = g.representativePair(r, tokenDeltas, native, dust)
	}
	if out == nil {
		return nil
	}
	out.Holder = actor
	return out.stamp(r, IdentifyDex(r), SourceGeneric)
}

// representativePair handles transactions with several simultaneous
// movements: the single largest-magnitude negative and positive deltas across
// all owners stand in for the trade. Multi-hop routes may lose legs here;
// the note flags the reduction.
func (g genericStrategy) representativePair(r *Record, deltas []TokenDelta, native nativeSummary, dust float64) *TradeOutcome {
	var pos, neg *TokenDelta
	for i := range deltas {
		d := &deltas[i]
		if isNativeMint(d.Mint) || math.Abs(d.Change) <= dust {
			continue
		}
		if d.Change > 0 && (pos == nil || d.Change > pos.Change) {
			pos = d
		}
		if d.Change < 0 && (neg == nil || d.Change < neg.Change) {
			neg = d
		}
	}

	asLeg := func(d *TokenDelta) TokenAmount {
		return TokenAmount{Mint: d.Mint, Amount: math.Abs(d.Change), Decimals: d.Decimals}
	}

	var out *TradeOutcome
	switch {
	case native.spent > dust && pos != nil:
		out = newBuy(native.spent, asLeg(pos))
	case native.received > dust && neg != nil:
		out = newSell(asLeg(neg), native.received)
	case neg != nil && pos != nil:
		out = newSwap(asLeg(neg), asLeg(pos))
	default:
		return nil
	}
	out.Note = "multiple changes, representative pair selected"
	return out
}
