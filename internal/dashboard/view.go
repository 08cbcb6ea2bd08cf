package dashboard

import (
	"time"

	"cryptodash/internal/market/comparison"
	"cryptodash/pkg/coingecko"
)

// View states.
const (
	StateLoading = "loading"
	StateReady   = "ready"
	StateError   = "error"
)

// View is everything the display surface renders for one period.
type View struct {
	State      string     `json:"state"`
	Error      string     `json:"error,omitempty"`
	Refreshing bool       `json:"refreshing"`
	FetchedAt  *time.Time `json:"fetched_at,omitempty"`
	Period     PeriodInfo `json:"period"`
	Cards      []Card     `json:"cards"`
	Comparison Comparison `json:"comparison"`
	Footer     Footer     `json:"footer"`
}

// PeriodInfo carries a period with its display labels.
type PeriodInfo struct {
	Value        coingecko.Period `json:"value"`
	Label        string           `json:"label"`
	SummaryLabel string           `json:"summary_label"`
}

// Card is one asset's price card.
type Card struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	Image       string    `json:"image"`
	Rank        int       `json:"rank"`
	Price       string    `json:"price"`
	MarketCap   string    `json:"market_cap"`
	Change24h   string    `json:"change_24h"`
	Change24hUp bool      `json:"change_24h_up"`
	Change7d    string    `json:"change_7d"`
	Change7dUp  bool      `json:"change_7d_up"`
	Color       string    `json:"color"`
	Selected    bool      `json:"selected"`
	Sparkline   []float64 `json:"sparkline,omitempty"`
}

// Series is a legend entry of the comparison chart.
type Series struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Hex      string `json:"hex"`
	Selected bool   `json:"selected"`
	HasData  bool   `json:"has_data"`
}

// Tick is an x-axis label at a sample index.
type Tick struct {
	Time  int    `json:"time"`
	Label string `json:"label"`
}

// Comparison is the normalized performance chart and its summary.
type Comparison struct {
	Series  []Series                  `json:"series"`
	Rows    []map[string]any          `json:"rows"`
	Ticks   []Tick                    `json:"ticks"`
	Summary []comparison.SummaryEntry `json:"summary"`
	Empty   bool                      `json:"empty"`

	Points []comparison.AlignedPoint `json:"-"`
}

// Footer holds static facts about the feed.
type Footer struct {
	Provider       string `json:"provider"`
	Coins          int    `json:"coins"`
	RefreshSeconds int    `json:"refresh_seconds"`
}

// Periods lists every selectable period with labels.
func Periods() []PeriodInfo {
	out := make([]PeriodInfo, 0, len(coingecko.Periods))
	for _, p := range coingecko.Periods {
		out = append(out, periodInfo(p))
	}
	return out
}

func periodInfo(p coingecko.Period) PeriodInfo {
	meta := p.Meta()
	return PeriodInfo{Value: p, Label: meta.ButtonLabel, SummaryLabel: meta.SummaryLabel}
}
