package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/solstream-labs/soltrade-go/oracle"
	"github.com/solstream-labs/soltrade-go/pipeline"
	"github.com/solstream-labs/soltrade-go/tradeparser"
)

type classifyResp struct {
	Trade interface{} `json:"trade"`
}

type apiError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSONMaybePretty(w http.ResponseWriter, status int, v interface{}, pretty bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})

	rpcURL := os.Getenv("SOLANA_RPC_URL")
	if rpcURL == "" {
		log.Fatal("SOLANA_RPC_URL is not set")
	}
	const rpcTimeout = 10 * time.Second

	cfg := tradeparser.DefaultConfig()

	var tradeOracle tradeparser.TradeOracle
	if base := os.Getenv("TRADE_ORACLE_URL"); base != "" {
		tradeOracle = oracle.NewClient(base, cfg.OracleTimeout)
	}

	classifier := tradeparser.NewClassifier(cfg, tradeOracle, oracle.NewSOLPrice(os.Getenv("BINANCE_BASE")))
	fetcher := pipeline.NewRPCFetcher(rpc.New(rpcURL), rpc.CommitmentConfirmed)
	batcher := pipeline.New(fetcher, classifier, cfg)

	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Classify endpoint: GET ?signature=...&pretty=1 or POST {"signature": "..."}
	http.HandleFunc("/classify", func(w http.ResponseWriter, r *http.Request) {
		pretty := r.URL.Query().Get("pretty") == "1" || r.URL.Query().Get("pretty") == "true"

		var sigStr string
		switch r.Method {
		case http.MethodPost:
			var req struct {
				Signature string `json:"signature"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSONMaybePretty(w, http.StatusBadRequest, apiError{Error: "bad_request", Details: "invalid JSON body"}, pretty)
				return
			}
			sigStr = req.Signature
		case http.MethodGet:
			sigStr = r.URL.Query().Get("signature")
		default:
			writeJSONMaybePretty(w, http.StatusMethodNotAllowed, apiError{Error: "method_not_allowed"}, pretty)
			return
		}

		if sigStr == "" {
			writeJSONMaybePretty(w, http.StatusBadRequest, apiError{Error: "bad_request", Details: "signature is required"}, pretty)
			return
		}
		sig, err := solana.SignatureFromBase58(sigStr)
		if err != nil {
			writeJSONMaybePretty(w, http.StatusBadRequest, apiError{Error: "bad_request", Details: "invalid signature (base58)"}, pretty)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), rpcTimeout)
		defer cancel()

		rec, err := fetcher.FetchOne(ctx, sig)
		if err != nil {
			low := strings.ToLower(err.Error())
			if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "deadline") || strings.Contains(low, "timeout") {
				// Graceful timeout: return 200 with a null trade
				writeJSONMaybePretty(w, http.StatusOK, classifyResp{Trade: nil}, pretty)
				return
			}
			writeJSONMaybePretty(w, http.StatusBadGateway, apiError{Error: "rpc_error", Details: err.Error()}, pretty)
			return
		}
		if rec == nil {
			writeJSONMaybePretty(w, http.StatusNotFound, apiError{Error: "not_found", Details: "transaction not found"}, pretty)
			return
		}

		trade := classifier.Classify(ctx, rec, tradeparser.Options{UseOracle: true, UseCache: true})
		if trade == nil {
			log.Infof("could not classify %s", sigStr)
		}
		writeJSONMaybePretty(w, http.StatusOK, classifyResp{Trade: trade}, pretty)
	})

	// Batch endpoint: POST {"signatures": ["...", ...]}. Fetched but
	// unclassifiable signatures come back as null; failed fetches are omitted.
	http.HandleFunc("/classify/batch", func(w http.ResponseWriter, r *http.Request) {
		pretty := r.URL.Query().Get("pretty") == "1" || r.URL.Query().Get("pretty") == "true"
		if r.Method != http.MethodPost {
			writeJSONMaybePretty(w, http.StatusMethodNotAllowed, apiError{Error: "method_not_allowed"}, pretty)
			return
		}

		var req struct {
			Signatures []string `json:"signatures"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Signatures) == 0 {
			writeJSONMaybePretty(w, http.StatusBadRequest, apiError{Error: "bad_request", Details: "signatures are required"}, pretty)
			return
		}

		sigs := make([]solana.Signature, 0, len(req.Signatures))
		for _, s := range req.Signatures {
			sig, err := solana.SignatureFromBase58(s)
			if err != nil {
				writeJSONMaybePretty(w, http.StatusBadRequest, apiError{Error: "bad_request", Details: "invalid signature: " + s}, pretty)
				return
			}
			sigs = append(sigs, sig)
		}

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		trades := batcher.ClassifyMany(ctx, sigs)
		writeJSONMaybePretty(w, http.StatusOK, map[string]interface{}{"trades": trades}, pretty)
	})

	addr := ":8080"
	srv := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Infof("listening on http://%s", addr)
	log.Fatal(srv.ListenAndServe())
}
