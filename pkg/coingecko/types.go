package coingecko

// MarketRecord is one element of the coins/markets response array.
// Optional fields are pointers so that an absent or null value stays distinguishable from zero.
type MarketRecord struct {
	ID                       string     `json:"id"`     // e.g. "bitcoin"
	Symbol                   string     `json:"symbol"` // e.g. "btc", lower-case as sent by the API
	Name                     string     `json:"name"`
	Image                    string     `json:"image"`
	CurrentPrice             float64    `json:"current_price"`
	MarketCap                float64    `json:"market_cap"`
	MarketCapRank            int        `json:"market_cap_rank"`
	TotalVolume              float64    `json:"total_volume"`
	PriceChangePercentage24h float64    `json:"price_change_percentage_24h"`
	PriceChange1dInCurrency  *float64   `json:"price_change_percentage_1d_in_currency,omitempty"`
	PriceChange7dInCurrency  *float64   `json:"price_change_percentage_7d_in_currency,omitempty"`
	PriceChange14dInCurrency *float64   `json:"price_change_percentage_14d_in_currency,omitempty"`
	PriceChange30dInCurrency *float64   `json:"price_change_percentage_30d_in_currency,omitempty"`
	PriceChange90dInCurrency *float64   `json:"price_change_percentage_90d_in_currency,omitempty"`
	PriceChange1yInCurrency  *float64   `json:"price_change_percentage_365d_in_currency,omitempty"`
	SparklineIn7d            *Sparkline `json:"sparkline_in_7d,omitempty"`
}

// Sparkline is the trailing 7-day price history, sampled hourly by the API.
type Sparkline struct {
	Price []float64 `json:"price"`
}

// ErrorResponse is the body CoinGecko sends with non-2xx statuses.
type ErrorResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Error string `json:"error"`
}

// MarketsQuery holds the request parameters of coins/markets.
type MarketsQuery struct {
	VsCurrency string
	Order      string
	PerPage    int
	Page       int
	Sparkline  bool
	Periods    []Period // requested price_change_percentage windows
}
