package tradeparser

import (
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Dex tags the protocol a transaction executed on.
type Dex string

const (
	DexRaydium    Dex = "raydium"
	DexOrca       Dex = "orca"
	DexMeteora    Dex = "meteora"
	DexPumpFun    Dex = "pumpfun"
	DexPumpFunAMM Dex = "pumpfun-amm"
	DexMoonshot   Dex = "moonshot"
	DexJupiter    Dex = "jupiter"
	DexOKX        Dex = "okx"
	DexAggregator Dex = "aggregator"
	DexUnknown    Dex = "unknown"
)

// dexRegistry pairs each protocol with its program ids, in match-priority
// order. Concrete AMMs come before aggregators: when a router CPIs into an
// AMM, the AMM is the protocol that actually executed the swap.
var dexRegistry = []struct {
	dex      Dex
	programs []solana.PublicKey
}{
	{DexPumpFun, []solana.PublicKey{PumpFunProgramID}},
	{DexPumpFunAMM, []solana.PublicKey{PumpFunAMMProgramID}},
	{DexMoonshot, []solana.PublicKey{MoonshotProgramID}},
	{DexRaydium, []solana.PublicKey{
		RaydiumV4ProgramID, RaydiumAMMProgramID, RaydiumCPMMProgramID,
		RaydiumCLMMProgramID, RaydiumLaunchLabProgram,
	}},
	{DexOrca, []solana.PublicKey{OrcaWhirlpoolProgramID}},
	{DexMeteora, []solana.PublicKey{
		MeteoraDLMMProgramID, MeteoraPoolsProgramID,
		MeteoraDBCProgramID, MeteoraDAMMV2ProgramID,
	}},
	{DexJupiter, []solana.PublicKey{JupiterV6ProgramID, JupiterDCAProgramID}},
	{DexOKX, []solana.PublicKey{OKXDexRouterProgramID}},
}

// IdentifyDex classifies the transaction's protocol. Inner instructions are
// collected before top-level ones; exact program-id matches dominate, then
// log-text keywords, then a structural guess for routed transactions.
func IdentifyDex(r *Record) Dex {
	var programs []solana.PublicKey
	for _, inst := range r.allInnerInstructions() {
		programs = append(programs, r.programIDFor(inst))
	}
	for _, inst := range r.topLevelInstructions() {
		programs = append(programs, r.programIDFor(inst))
	}

	for _, entry := range dexRegistry {
		for _, pid := range programs {
			for _, known := range entry.programs {
				if pid.Equals(known) {
					return entry.dex
				}
			}
		}
	}

	if dex := identifyFromLogs(r.logMessages()); dex != DexUnknown {
		return dex
	}

	// Structural fallback: busy transactions with both token and native
	// movement are probably routed through a program we did not resolve.
	if len(r.topLevelInstructions()) > 3 && len(r.accounts) > 10 &&
		len(r.TokenDeltas()) > 0 && len(r.NativeDeltas()) > 0 {
		return DexAggregator
	}
	return DexUnknown
}

// identifyFromLogs scans concatenated log text for protocol fingerprints.
// Used when a program id is invoked via an account not present in the decoded
// key list.
func identifyFromLogs(logs []string) Dex {
	if len(logs) == 0 {
		return DexUnknown
	}
	joined := strings.ToLower(strings.Join(logs, "\n"))

	switch {
	case strings.Contains(joined, strings.ToLower(PumpFunProgramID.String())):
		return DexPumpFun
	case strings.Contains(joined, strings.ToLower(PumpFunAMMProgramID.String())):
		return DexPumpFunAMM
	case strings.Contains(joined, "instruction: swap") && strings.Contains(joined, "whirlpool"):
		return DexOrca
	case strings.Contains(joined, strings.ToLower(RaydiumV4ProgramID.String())),
		strings.Contains(joined, "ray_log"):
		return DexRaydium
	case strings.Contains(joined, "meteora"):
		return DexMeteora
	case strings.Contains(joined, strings.ToLower(JupiterV6ProgramID.String())):
		return DexJupiter
	case strings.Contains(joined, "source_token_change") && strings.Contains(joined, "destination_token_change"):
		return DexOKX
	}
	return DexUnknown
}
