package tradeparser

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Known program ids. Routed swaps usually reference these from inner
// instructions rather than the top-level program list.
var (
	RaydiumV4ProgramID       = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	RaydiumAMMProgramID      = solana.MustPublicKeyFromBase58("5quBtoiQqxF9Jv6KYKctB59NT3gtJD2Y65kdnB1Uev3h")
	RaydiumCPMMProgramID     = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")
	RaydiumCLMMProgramID     = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
	RaydiumLaunchLabProgram  = solana.MustPublicKeyFromBase58("LanMV9sAd7wArD4vJFi2qDdfnVhFxYSUg6eADduJ3uj")
	OrcaWhirlpoolProgramID   = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")
	MeteoraDLMMProgramID     = solana.MustPublicKeyFromBase58("LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo")
	MeteoraPoolsProgramID    = solana.MustPublicKeyFromBase58("Eo7WjKq67rjJQSZxS6z3YkapzY3eMj6Xy8X5EQVn5UaB")
	MeteoraDBCProgramID      = solana.MustPublicKeyFromBase58("dbcij3LWUppWqq96dh6gJWwBifmcGfLSB5D4DuSMaqN")
	MeteoraDAMMV2ProgramID   = solana.MustPublicKeyFromBase58("cpamdpZCGKUy5JxQXB4dcpGPiikHawvSWAd6mEn1sGG")
	PumpFunProgramID         = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	PumpFunAMMProgramID      = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")
	MoonshotProgramID        = solana.MustPublicKeyFromBase58("MoonCVVNZFSYkqNXP6bxHLPL6QQJiMagDL3qcqUQTrG")
	JupiterV6ProgramID       = solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")
	JupiterDCAProgramID      = solana.MustPublicKeyFromBase58("DCA265Vj8a9CEuX1eb1LWRnDT7uK6q1xMipnNyatn23M")
	OKXDexRouterProgramID    = solana.MustPublicKeyFromBase58("6m2CDdhRgxpH4WjvdzxAYbGxwdGUz5MziiL5jek2kBma")
	NativeSOLMintProgramID   = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	USDCMintProgramID        = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	USDTMintProgramID        = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
)

const (
	// NativeSymbol is the display symbol for the chain's base currency.
	NativeSymbol = "SOL"

	// NativeDecimals is the lamport precision of the native asset.
	NativeDecimals = 9

	lamportsPerSOL = 1_000_000_000
)

// Config carries the tuning knobs of the classification core. Everything here
// is a plain parameter; nothing reads the environment.
type Config struct {
	// TokenDust is the minimum absolute UI-amount change that counts as a
	// token delta.
	TokenDust float64

	// NativeDustLamports is the minimum absolute lamport change that counts
	// as a native delta.
	NativeDustLamports uint64

	// GenericDust re-filters deltas inside the generic heuristic.
	GenericDust float64

	// OracleMinAmount rejects oracle lookups whose amounts are suspiciously
	// small (partial or irrelevant matches).
	OracleMinAmount float64

	CacheCapacity int
	CacheTTL      time.Duration

	BatchSize     int
	BatchFanout   int
	OracleTimeout time.Duration
}

// DefaultConfig returns the tuning used in production.
func DefaultConfig() Config {
	return Config{
		TokenDust:          1e-6,
		NativeDustLamports: 100_000,
		GenericDust:        1e-5,
		OracleMinAmount:    1e-6,
		CacheCapacity:      10_000,
		CacheTTL:           30 * time.Minute,
		BatchSize:          50,
		BatchFanout:        5,
		OracleTimeout:      2 * time.Second,
	}
}

func isNativeMint(mint string) bool {
	return mint == NativeSOLMintProgramID.String()
}

func isStableMint(mint string) bool {
	return mint == USDCMintProgramID.String() || mint == USDTMintProgramID.String()
}
