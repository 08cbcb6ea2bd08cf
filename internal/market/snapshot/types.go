package snapshot

import "strings"

// AssetSnapshot is one asset's point-in-time market data plus its trailing price history.
type AssetSnapshot struct {
	ID            string  `json:"id"`     // stable, unique within a Collection
	Symbol        string  `json:"symbol"` // upper-cased ticker, not unique
	Name          string  `json:"name"`
	Image         string  `json:"image"`
	CurrentPrice  float64 `json:"current_price"`
	MarketCap     float64 `json:"market_cap"`
	MarketCapRank int     `json:"market_cap_rank"`
	TotalVolume   float64 `json:"total_volume"`

	PriceChange24h float64 `json:"price_change_percentage_24h"`

	// PriceChange7d is always populated; absent upstream values become 0.
	// The other period changes are nil when absent.
	PriceChange7d   float64  `json:"price_change_percentage_7d"`
	PriceChange1d   *float64 `json:"price_change_percentage_1d,omitempty"`
	PriceChange14d  *float64 `json:"price_change_percentage_14d,omitempty"`
	PriceChange30d  *float64 `json:"price_change_percentage_30d,omitempty"`
	PriceChange90d  *float64 `json:"price_change_percentage_90d,omitempty"`
	PriceChange365d *float64 `json:"price_change_percentage_365d,omitempty"`

	Sparkline []float64 `json:"sparkline,omitempty"`
}

// HasSparkline reports whether the snapshot carries any price history.
func (s AssetSnapshot) HasSparkline() bool {
	return len(s.Sparkline) > 0
}

// Collection is an ordered snapshot set as delivered by the upstream source.
type Collection []AssetSnapshot

// IDs returns the asset ids in collection order.
func (c Collection) IDs() []string {
	ids := make([]string, len(c))
	for i, s := range c {
		ids[i] = s.ID
	}
	return ids
}

// IndexOf returns the position of id in the collection or -1.
func (c Collection) IndexOf(id string) int {
	for i, s := range c {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Lookup returns the snapshot with the given id.
func (c Collection) Lookup(id string) (AssetSnapshot, bool) {
	if i := c.IndexOf(id); i >= 0 {
		return c[i], true
	}
	return AssetSnapshot{}, false
}

// Identity is the ordered id list of the collection. Two collections with the
// same identity hold the same assets in the same order, whatever their prices.
func (c Collection) Identity() string {
	return strings.Join(c.IDs(), "\x00")
}
