// Package pipeline fetches transactions in bulk and drives the classifier
// over them, with per-signature fallback when a bulk fetch fails.
package pipeline

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/sync/errgroup"

	"github.com/solstream-labs/soltrade-go/tradeparser"
)

// Fetcher supplies normalized transaction records. FetchBatch returns a slice
// positionally aligned with the input, nil entries for signatures that were
// not found; an error means the batch as a whole failed.
type Fetcher interface {
	FetchOne(ctx context.Context, sig solana.Signature) (*tradeparser.Record, error)
	FetchBatch(ctx context.Context, sigs []solana.Signature) ([]*tradeparser.Record, error)
}

// RPCFetcher implements Fetcher on a Solana RPC client. Public RPC has no
// bulk getTransaction, so FetchBatch fans out bounded per-signature calls;
// providers with real batch support slot in behind the same interface.
type RPCFetcher struct {
	client     *rpc.Client
	commitment rpc.CommitmentType
	fanout     int
}

// NewRPCFetcher wraps an RPC client. An empty commitment defaults to
// confirmed.
func NewRPCFetcher(client *rpc.Client, commitment rpc.CommitmentType) *RPCFetcher {
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &RPCFetcher{client: client, commitment: commitment, fanout: 8}
}

// FetchOne retrieves and normalizes a single transaction, retrying transient
// throttling with jittered backoff. Not-found and undecodable transactions
// both return (nil, nil).
func (f *RPCFetcher) FetchOne(ctx context.Context, sig solana.Signature) (*tradeparser.Record, error) {
	const maxAttempts = 5
	const base = 250 * time.Millisecond

	var res *rpc.GetTransactionResult
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err = f.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Commitment:                     f.commitment,
			MaxSupportedTransactionVersion: pointer.ToUint64(0),
		})
		if err == nil {
			break
		}
		if isNotFound(err) {
			return nil, nil
		}
		if !isThrottled(err) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(base*time.Duration(attempt) + time.Duration(rand.Int63n(int64(150*time.Millisecond)))):
		}
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}

	rec, err := tradeparser.NewRecord(res)
	if err != nil {
		return nil, nil
	}
	return rec, nil
}

// FetchBatch fans FetchOne out over the batch. Any hard failure fails the
// whole batch so the pipeline can switch to its per-signature path.
func (f *RPCFetcher) FetchBatch(ctx context.Context, sigs []solana.Signature) ([]*tradeparser.Record, error) {
	out := make([]*tradeparser.Record, len(sigs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.fanout)
	for i, sig := range sigs {
		i, sig := i, sig
		g.Go(func() error {
			rec, err := f.FetchOne(gctx, sig)
			if err != nil {
				return err
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- upstream error shapes (providers phrase these inconsistently) ----

func isThrottled(err error) bool {
	return containsAny(err, "rate limit", "rate-limited", "429", "too many requests", "server busy", "overloaded", "try again later")
}

func isNotFound(err error) bool {
	return containsAny(err, "not found", "could not find")
}

func containsAny(err error, subs ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sub := range subs {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}
