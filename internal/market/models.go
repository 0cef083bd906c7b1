package market

// Stock is one trending instrument extracted from the market-data feed.
type Stock struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	PriceChange   float64 `json:"price_change"`
	ChangePercent float64 `json:"percentage_change"`
	Volume        int64   `json:"volume,omitempty"`
	MarketCap     float64 `json:"market_cap,omitempty"`
	Trend         string  `json:"trend"`
}

// Snapshot is the result of one live market query.
type Snapshot struct {
	Timestamp string  `json:"timestamp"`
	Stocks    []Stock `json:"trending_stocks"`
}
