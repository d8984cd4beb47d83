package tradeparser

import (
	"context"

	"github.com/AlekSi/pointer"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// TradeLookup is the shape an external trade oracle returns for a signature.
// Amounts are UI units.
type TradeLookup struct {
	InputMint      string
	OutputMint     string
	InputAmount    float64
	OutputAmount   float64
	InputDecimals  uint8
	OutputDecimals uint8
}

// TradeOracle resolves a signature to a quote from an external service. A nil
// result with a nil error means "no data"; implementations swallow timeouts
// and 4xx/5xx the same way.
type TradeOracle interface {
	Lookup(ctx context.Context, signature string) (*TradeLookup, error)
}

// NativePriceSource supplies the native asset's USD price for normalization.
type NativePriceSource interface {
	CurrentPrice(ctx context.Context) (float64, error)
}

// Options steer a single classification.
type Options struct {
	// UseOracle enables the external lookup step. Batch callers disable it
	// to keep per-transaction work CPU-only.
	UseOracle bool

	// UseCache enables the signature cache for both read and insert.
	UseCache bool

	// Commitment is passed through to fetch collaborators; the classifier
	// itself never reads it.
	Commitment string
}

type protocolParser interface {
	dex() Dex
	parse(r *Record) *TradeOutcome
}

// Classifier resolves transactions to trade outcomes by trying strategies in
// a fixed order: cache, external oracle, protocol-specific parser, generic
// balance-delta heuristic.
type Classifier struct {
	cfg      Config
	cache    *Cache
	oracle   TradeOracle
	solPrice NativePriceSource
	parsers  map[Dex]protocolParser
	generic  genericStrategy

	Log *logrus.Logger
}

// NewClassifier wires a classifier. oracle and solPrice may be nil; the
// corresponding steps are then skipped.
func NewClassifier(cfg Config, oracle TradeOracle, solPrice NativePriceSource) *Classifier {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})

	parsers := make(map[Dex]protocolParser)
	register := func(p protocolParser) { parsers[p.dex()] = p }
	register(pumpfunParser{})
	register(jupiterParser{})
	register(okxParser{})
	register(ammParser{name: DexRaydium, programs: []solana.PublicKey{
		RaydiumV4ProgramID, RaydiumAMMProgramID, RaydiumCPMMProgramID,
		RaydiumCLMMProgramID, RaydiumLaunchLabProgram,
	}})
	register(ammParser{name: DexOrca, programs: []solana.PublicKey{OrcaWhirlpoolProgramID}})
	register(ammParser{name: DexMeteora, programs: []solana.PublicKey{
		MeteoraDLMMProgramID, MeteoraPoolsProgramID,
		MeteoraDBCProgramID, MeteoraDAMMV2ProgramID,
	}})
	register(ammParser{name: DexPumpFunAMM, programs: []solana.PublicKey{PumpFunAMMProgramID}})
	register(ammParser{name: DexMoonshot, programs: []solana.PublicKey{MoonshotProgramID}})

	return &Classifier{
		cfg:      cfg,
		cache:    NewCache(cfg.CacheCapacity, cfg.CacheTTL),
		oracle:   oracle,
		solPrice: solPrice,
		parsers:  parsers,
		generic:  genericStrategy{dust: cfg.GenericDust},
		Log:      log,
	}
}

// Cached returns the cached outcome for a signature without touching the
// transaction. Lets batch callers skip fetches entirely on warm entries.
func (c *Classifier) Cached(signature string) (*TradeOutcome, bool) {
	return c.cache.Get(signature)
}

// Classify runs the resolution chain for one transaction. It never returns an
// error: a nil result means every strategy was exhausted, which callers
// report as "could not classify".
func (c *Classifier) Classify(ctx context.Context, r *Record, opts Options) *TradeOutcome {
	if r == nil {
		return nil
	}

	if opts.UseCache && r.Signature != "" {
		if cached, ok := c.cache.Get(r.Signature); ok {
			return cached
		}
	}

	var outcome *TradeOutcome
	if opts.UseOracle && c.oracle != nil {
		outcome = c.safely("oracle", func() *TradeOutcome { return c.oracleOutcome(ctx, r) })
	}

	dex := IdentifyDex(r)
	if parser, ok := c.parsers[dex]; ok {
		if parsed := c.safely(string(dex), func() *TradeOutcome { return parser.parse(r) }); parsed != nil {
			switch {
			case outcome == nil:
				outcome = parsed
			case parsed.Type != outcome.Type:
				// On-chain logs stating the direction beat an inferred one.
				if dir, ok := LogStatedDirection(r); ok && dir == parsed.Type {
					c.Log.Infof("log-stated %s overrides oracle %s for %s", parsed.Type, outcome.Type, r.Signature)
					outcome = parsed
				}
			}
		}
	}

	if outcome == nil {
		outcome = c.safely("generic", func() *TradeOutcome { return c.generic.Classify(ctx, r) })
	}
	if outcome == nil {
		return nil
	}

	if outcome.Holder == "" {
		outcome.Holder = actingWallet(r)
	}
	c.fillUSDPrice(ctx, outcome)

	if opts.UseCache && r.Signature != "" {
		c.cache.Put(r.Signature, outcome)
	}
	return outcome
}

// oracleOutcome consults the external lookup with its own short timeout.
// Results with non-positive or suspiciously small amounts are rejected; those
// are usually partial or irrelevant matches.
func (c *Classifier) oracleOutcome(ctx context.Context, r *Record) *TradeOutcome {
	timeout := c.cfg.OracleTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().OracleTimeout
	}
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	lookup, err := c.oracle.Lookup(lctx, r.Signature)
	if err != nil || lookup == nil {
		if err != nil {
			c.Log.Debugf("oracle lookup failed for %s: %v", r.Signature, err)
		}
		return nil
	}

	floor := c.cfg.OracleMinAmount
	if lookup.InputAmount <= floor || lookup.OutputAmount <= floor {
		return nil
	}

	out := pairedOutcomeUI(r, lookup)
	if out == nil {
		return nil
	}
	// The oracle never knows the acting wallet; backfilled by the caller.
	return out.stamp(r, IdentifyDex(r), SourceOracle)
}

// pairedOutcomeUI mirrors pairedOutcome for UI-unit legs.
func pairedOutcomeUI(r *Record, l *TradeLookup) *TradeOutcome {
	inNative := isNativeMint(l.InputMint)
	outNative := isNativeMint(l.OutputMint)

	sold := TokenAmount{Mint: l.InputMint, Amount: l.InputAmount, Decimals: l.InputDecimals}
	bought := TokenAmount{Mint: l.OutputMint, Amount: l.OutputAmount, Decimals: l.OutputDecimals}

	switch {
	case inNative && !outNative:
		return newBuy(l.InputAmount, bought)
	case outNative && !inNative:
		return newSell(sold, l.OutputAmount)
	case !inNative && !outNative:
		return newSwap(sold, bought)
	}
	return nil
}

// fillUSDPrice converts a native-denominated unit price to USD when a price
// source is wired. Swaps against a stablecoin need no conversion at all.
func (c *Classifier) fillUSDPrice(ctx context.Context, out *TradeOutcome) {
	if out.Price == nil {
		return
	}

	if out.Type == TradeSwap && out.Sold != nil && out.Bought != nil {
		switch {
		case isStableMint(out.Bought.Mint):
			out.PriceUSD = pointer.ToFloat64(*out.Price)
		case isStableMint(out.Sold.Mint) && *out.Price > 0:
			out.PriceUSD = pointer.ToFloat64(1 / *out.Price)
		}
		return
	}

	if c.solPrice == nil || (out.Type != TradeBuy && out.Type != TradeSell) {
		return
	}
	solUSD, err := c.solPrice.CurrentPrice(ctx)
	if err != nil || solUSD <= 0 {
		return
	}
	out.PriceUSD = pointer.ToFloat64(*out.Price * solUSD)
}

// safely contains panics from any single strategy so the chain can continue.
func (c *Classifier) safely(step string, fn func() *TradeOutcome) (out *TradeOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			c.Log.Errorf("%s strategy panicked: %v", step, rec)
			out = nil
		}
	}()
	return fn()
}
