// Package oracle holds the external collaborators the classifier may consult:
// a per-signature trade lookup service and a native-asset USD price source.
// Both are best-effort; every failure mode degrades to "no data".
package oracle

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/solstream-labs/soltrade-go/tradeparser"
)

// lookupResponse is the wire shape of the trade-lookup service. Amounts are
// raw base-unit decimal strings.
type lookupResponse struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	InputAmount    string `json:"inputAmount"`
	OutputAmount   string `json:"outputAmount"`
	InputDecimals  uint8  `json:"inputDecimals"`
	OutputDecimals uint8  `json:"outputDecimals"`
}

// Client looks up trades by signature against an external quote service.
type Client struct {
	http *resty.Client
	Log  *logrus.Logger
}

// NewClient builds a lookup client. The timeout bounds every request
// end-to-end; callers typically keep it around two seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	log := logrus.New()
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		Log: log,
	}
}

// Lookup resolves a signature. Timeouts, 4xx and 5xx all return (nil, nil):
// the classifier treats missing oracle data as a normal condition, not an
// error to surface.
func (c *Client) Lookup(ctx context.Context, signature string) (*tradeparser.TradeLookup, error) {
	var body lookupResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("signature", signature).
		SetResult(&body).
		Get("/v1/trades")
	if err != nil {
		c.Log.Debugf("trade lookup failed for %s: %v", signature, err)
		return nil, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, nil
	}
	if body.InputMint == "" || body.OutputMint == "" {
		return nil, nil
	}

	return &tradeparser.TradeLookup{
		InputMint:      body.InputMint,
		OutputMint:     body.OutputMint,
		InputAmount:    uiFromRaw(body.InputAmount, body.InputDecimals),
		OutputAmount:   uiFromRaw(body.OutputAmount, body.OutputDecimals),
		InputDecimals:  body.InputDecimals,
		OutputDecimals: body.OutputDecimals,
	}, nil
}

func uiFromRaw(raw string, decimals uint8) float64 {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return float64(n) / math.Pow10(int(decimals))
}
