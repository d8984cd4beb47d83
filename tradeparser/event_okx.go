package tradeparser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// OKX Aggregation Router V2 logs the net route amounts:
//
//	"Program log: after_source_balance: 0, after_destination_balance: 2385716221310,
//	 source_token_change: 150000000000, destination_token_change: 2385716221310"
var (
	okxAggregateRe = regexp.MustCompile(`after_source_balance:\s*\d+.*?source_token_change:\s*(\d+),\s*destination_token_change:\s*(\d+)`)
)

type okxParser struct{}

func (okxParser) dex() Dex { return DexOKX }

// parse reads the router-level aggregate from program logs. Mints come from
// the outer router instruction, whose account layout puts the source mint at
// position 3 and the destination mint at position 4.
func (okxParser) parse(r *Record) *TradeOutcome {
	srcMint, dstMint := okxRouteMints(r)
	if srcMint.IsZero() || dstMint.IsZero() {
		return nil
	}

	var srcDelta, dstDelta uint64
	for _, line := range r.logMessages() {
		if !strings.Contains(line, "Program log:") || !strings.Contains(line, "source_token_change") {
			continue
		}
		if m := okxAggregateRe.FindStringSubmatch(line); len(m) == 3 {
			if v, err := strconv.ParseUint(m[1], 10, 64); err == nil {
				srcDelta = v
			}
			if v, err := strconv.ParseUint(m[2], 10, 64); err == nil {
				dstDelta = v
			}
		}
	}
	if srcDelta == 0 || dstDelta == 0 {
		return nil
	}

	out := pairedOutcome(r,
		rawLeg{mint: srcMint.String(), amount: srcDelta},
		rawLeg{mint: dstMint.String(), amount: dstDelta},
	)
	if out == nil {
		return nil
	}
	out.Holder = r.feePayer()
	return out.stamp(r, DexOKX, SourceDex)
}

func okxRouteMints(r *Record) (src, dst solana.PublicKey) {
	for _, inst := range r.topLevelInstructions() {
		if !r.programIDFor(inst).Equals(OKXDexRouterProgramID) || len(inst.Accounts) < 5 {
			continue
		}
		if acct, ok := r.accountAt(int(inst.Accounts[3])); ok {
			src = acct.Address
		}
		if acct, ok := r.accountAt(int(inst.Accounts[4])); ok {
			dst = acct.Address
		}
		return src, dst
	}
	return src, dst
}
