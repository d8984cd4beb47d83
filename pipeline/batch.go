package pipeline

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/solstream-labs/soltrade-go/tradeparser"
)

// Pipeline classifies many signatures with bounded concurrency. Result-map
// semantics: a fetched but unclassifiable signature maps to a nil outcome, a
// signature whose fetch failed is absent entirely. Callers can therefore tell
// "could not classify" from "never processed".
type Pipeline struct {
	fetcher    Fetcher
	classifier *tradeparser.Classifier
	batchSize  int
	fanout     int

	Log *logrus.Logger
}

// New wires a pipeline; batch size and fan-out come from cfg.
func New(fetcher Fetcher, classifier *tradeparser.Classifier, cfg tradeparser.Config) *Pipeline {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = tradeparser.DefaultConfig().BatchSize
	}
	fanout := cfg.BatchFanout
	if fanout <= 0 {
		fanout = tradeparser.DefaultConfig().BatchFanout
	}
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	return &Pipeline{
		fetcher:    fetcher,
		classifier: classifier,
		batchSize:  batchSize,
		fanout:     fanout,
		Log:        log,
	}
}

// ClassifyMany partitions signatures into batches, bulk-fetches each batch
// and classifies the payloads CPU-only (oracle disabled). A failed bulk fetch
// degrades to per-signature fetch+classify with the oracle enabled. Warm
// cache entries are resolved up front without any fetch. Iteration order of
// the returned map is unspecified.
func (p *Pipeline) ClassifyMany(ctx context.Context, sigs []solana.Signature) map[string]*tradeparser.TradeOutcome {
	results := make(map[string]*tradeparser.TradeOutcome, len(sigs))
	var mu sync.Mutex

	var pending []solana.Signature
	for _, sig := range sigs {
		if out, ok := p.classifier.Cached(sig.String()); ok {
			results[sig.String()] = out
			continue
		}
		pending = append(pending, sig)
	}

	var g errgroup.Group
	g.SetLimit(p.fanout)
	for start := 0; start < len(pending); start += p.batchSize {
		// Once the caller's deadline passes, stop launching batches and let
		// in-flight ones finish; partial results are expected.
		if ctx.Err() != nil {
			p.Log.Warnf("deadline exceeded with %d signatures unprocessed", len(pending)-start)
			break
		}
		end := start + p.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]
		g.Go(func() error {
			// g.Go can block on the fan-out limit past the deadline;
			// re-check before fetching.
			if ctx.Err() != nil {
				return nil
			}
			p.processBatch(ctx, batch, results, &mu)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ClassifyFetched classifies already-fetched payloads with zero additional
// fetches. Used when a listing call returned full transaction details anyway.
func (p *Pipeline) ClassifyFetched(ctx context.Context, fetched []*tradeparser.Record) map[string]*tradeparser.TradeOutcome {
	results := make(map[string]*tradeparser.TradeOutcome, len(fetched))
	for _, rec := range fetched {
		if rec == nil || rec.Signature == "" {
			continue
		}
		results[rec.Signature] = p.classifier.Classify(ctx, rec, tradeparser.Options{
			UseOracle: false,
			UseCache:  true,
		})
	}
	return results
}

func (p *Pipeline) processBatch(ctx context.Context, batch []solana.Signature, results map[string]*tradeparser.TradeOutcome, mu *sync.Mutex) {
	fetched, err := p.fetcher.FetchBatch(ctx, batch)
	if err != nil {
		p.Log.Warnf("batch fetch failed (%v), falling back to per-signature fetch for %d signatures", err, len(batch))
		p.fallbackIndividually(ctx, batch, results, mu)
		return
	}

	for i, rec := range fetched {
		if i >= len(batch) || rec == nil {
			continue
		}
		// Batch mode keeps classification CPU-only; the oracle round trip is
		// not worth it at this volume.
		out := p.classifier.Classify(ctx, rec, tradeparser.Options{UseOracle: false, UseCache: true})
		mu.Lock()
		results[batch[i].String()] = out
		mu.Unlock()
	}
}

// fallbackIndividually pays the per-item cost, so the oracle path is enabled
// again. Individual failures are swallowed and the signature stays absent.
func (p *Pipeline) fallbackIndividually(ctx context.Context, batch []solana.Signature, results map[string]*tradeparser.TradeOutcome, mu *sync.Mutex) {
	for _, sig := range batch {
		rec, err := p.fetcher.FetchOne(ctx, sig)
		if err != nil || rec == nil {
			continue
		}
		out := p.classifier.Classify(ctx, rec, tradeparser.Options{UseOracle: true, UseCache: true})
		mu.Lock()
		results[sig.String()] = out
		mu.Unlock()
	}
}
