package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// HTTPQuoteSource fetches the native-asset fiat price from a CoinGecko
// style simple-price endpoint. Requests are rate-limited so the oracle
// never sees more traffic than its free tier allows.
type HTTPQuoteSource struct {
	baseURL string
	coinID  string
	vsCcy   string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPQuoteSource creates a quote source for the given coin ID
// (e.g. "binancecoin") quoted in vsCcy (e.g. "usd").
func NewHTTPQuoteSource(baseURL, coinID, vsCcy string, reqPerSec float64) *HTTPQuoteSource {
	if reqPerSec <= 0 {
		reqPerSec = 0.5
	}
	return &HTTPQuoteSource{
		baseURL: baseURL,
		coinID:  coinID,
		vsCcy:   vsCcy,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(reqPerSec), 1),
	}
}

// QuotePriceFiat fetches the current fiat price of the quote asset.
func (s *HTTPQuoteSource) QuotePriceFiat(ctx context.Context) (float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("ids", s.coinID)
	q.Set("vs_currencies", s.vsCcy)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed map[string]map[string]float64
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("unmarshal response: %w", err)
	}

	price, ok := parsed[s.coinID][s.vsCcy]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("no %s/%s price in response", s.coinID, s.vsCcy)
	}

	return price, nil
}

// Ensure HTTPQuoteSource implements QuoteSource
var _ QuoteSource = (*HTTPQuoteSource)(nil)
