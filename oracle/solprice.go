package oracle

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

/*
SOL/USDT spot price from Binance REST:

	GET /api/v3/ticker/price?symbol=SOLUSDT

Used only to normalize native-denominated prices to USD; a failed fetch just
leaves PriceUSD unset on the outcome.
*/

const (
	binanceDefaultBase = "https://api.binance.com"
	binanceSymbol      = "SOLUSDT"
)

// SOLPrice serves the current SOL/USD price with a short-lived memo so burst
// classification does not hammer the ticker endpoint.
type SOLPrice struct {
	http    *resty.Client
	maxAge  time.Duration
	mu      sync.Mutex
	price   float64
	fetched time.Time
}

// NewSOLPrice builds a price source. An empty baseURL uses the public Binance
// API.
func NewSOLPrice(baseURL string) *SOLPrice {
	if baseURL == "" {
		baseURL = binanceDefaultBase
	}
	return &SOLPrice{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(300 * time.Millisecond),
		maxAge: time.Minute,
	}
}

type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// CurrentPrice returns the latest SOL/USDT close, memoized for one minute.
func (s *SOLPrice) CurrentPrice(ctx context.Context) (float64, error) {
	s.mu.Lock()
	if s.price > 0 && time.Since(s.fetched) < s.maxAge {
		px := s.price
		s.mu.Unlock()
		return px, nil
	}
	s.mu.Unlock()

	var body tickerResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", binanceSymbol).
		SetResult(&body).
		Get("/api/v3/ticker/price")
	if err != nil {
		return 0, err
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("ticker http %d", resp.StatusCode())
	}

	px, err := strconv.ParseFloat(body.Price, 64)
	if err != nil || px <= 0 {
		return 0, fmt.Errorf("unexpected ticker price %q", body.Price)
	}

	s.mu.Lock()
	s.price, s.fetched = px, time.Now()
	s.mu.Unlock()
	return px, nil
}
