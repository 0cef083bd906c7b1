package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stockcall/internal/config"
)

const defaultBaseURL = "https://api.dataforseo.com"

// liveMarketsPayload pins the query to the americas index board; the feed's
// "interested" section is where the trending individual stocks live.
const liveMarketsPayload = `[{"location_code":2124, "language_code":"en", "market_type":"indexes/americas"}]`

var ErrNoMarketData = errors.New("market: no data found in API response")

// Client queries the DataForSEO Google Finance markets endpoint.
type Client struct {
	baseURL    string
	authBase64 string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(cfg config.FinanceConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.AuthBase64) == "" {
		return nil, errors.New("market: FINANCE_API_BASE64 credential is required")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		authBase64: strings.TrimSpace(cfg.AuthBase64),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Response shapes cover only the path we navigate:
// tasks[0].result[0].items[] -> google_finance_interested -> instrument elements.

type liveResponse struct {
	Tasks []struct {
		Result []struct {
			Datetime string     `json:"datetime"`
			Items    []liveItem `json:"items"`
		} `json:"result"`
	} `json:"tasks"`
}

type liveItem struct {
	Type  string           `json:"type"`
	Items []liveInstrument `json:"items"`
}

type liveInstrument struct {
	Type            string  `json:"type"`
	Ticker          string  `json:"ticker"`
	DisplayedName   string  `json:"displayed_name"`
	Price           float64 `json:"price"`
	PriceDelta      float64 `json:"price_delta"`
	PercentageDelta float64 `json:"percentage_delta"`
	Trend           string  `json:"trend"`
}

// TrendingStocks fetches the live board and extracts individual trending
// stocks from the "interested" section.
func (c *Client) TrendingStocks(ctx context.Context) (Snapshot, error) {
	url := c.baseURL + "/v3/serp/google/finance_markets/live/advanced"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(liveMarketsPayload))
	if err != nil {
		return Snapshot{}, fmt.Errorf("market: create request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.authBase64)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("market: api call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return Snapshot{}, fmt.Errorf("market: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Snapshot{}, fmt.Errorf("market: unexpected status %d from %s", resp.StatusCode, url)
	}

	var payload liveResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Snapshot{}, fmt.Errorf("market: decode response: %w", err)
	}

	if len(payload.Tasks) == 0 || len(payload.Tasks[0].Result) == 0 {
		return Snapshot{}, ErrNoMarketData
	}
	first := payload.Tasks[0].Result[0]

	snap := Snapshot{Timestamp: first.Datetime}
	for _, item := range first.Items {
		if item.Type != "google_finance_interested" {
			continue
		}
		for _, inst := range item.Items {
			if inst.Type != "google_finance_market_instrument_element" {
				continue
			}
			snap.Stocks = append(snap.Stocks, Stock{
				Symbol:        inst.Ticker,
				Name:          inst.DisplayedName,
				Price:         inst.Price,
				PriceChange:   inst.PriceDelta,
				ChangePercent: inst.PercentageDelta,
				Trend:         inst.Trend,
			})
		}
	}
	if len(snap.Stocks) == 0 {
		return Snapshot{}, ErrNoMarketData
	}
	return snap, nil
}
