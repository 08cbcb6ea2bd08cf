package comparison

import (
	"cryptodash/internal/market/snapshot"
	"cryptodash/pkg/coingecko"
)

// PeriodChange returns the percentage change of s over p, or 0 when the value
// is absent. Unknown periods yield 0.
func PeriodChange(s snapshot.AssetSnapshot, p coingecko.Period) float64 {
	var v *float64
	switch p {
	case coingecko.Period1D:
		v = s.PriceChange1d
	case coingecko.Period7D:
		return s.PriceChange7d
	case coingecko.Period14D:
		v = s.PriceChange14d
	case coingecko.Period30D:
		v = s.PriceChange30d
	case coingecko.Period90D:
		v = s.PriceChange90d
	case coingecko.Period365D:
		v = s.PriceChange365d
	}
	if v == nil {
		return 0
	}
	return *v
}

// SummaryEntry is one selected asset's change over the reporting period.
type SummaryEntry struct {
	ID       string  `json:"id"`
	Symbol   string  `json:"symbol"`
	Color    string  `json:"color"`
	Change   float64 `json:"change"`
	Positive bool    `json:"positive"`
}

// Selected filters all down to the selected assets, keeping collection order.
func Selected(all snapshot.Collection, sel Membership) snapshot.Collection {
	out := make(snapshot.Collection, 0, len(all))
	for _, s := range all {
		if sel.IsSelected(s.ID) {
			out = append(out, s)
		}
	}
	return out
}

// Summarize resolves the period change of every selected asset, in collection order.
func Summarize(all snapshot.Collection, sel Membership, p coingecko.Period, colors ColorScheme) []SummaryEntry {
	selected := Selected(all, sel)
	out := make([]SummaryEntry, 0, len(selected))
	for _, s := range selected {
		change := PeriodChange(s, p)
		entry := SummaryEntry{
			ID:       s.ID,
			Symbol:   s.Symbol,
			Change:   change,
			Positive: change >= 0,
		}
		if c, ok := colors.ColorOf(s.ID, all); ok {
			entry.Color = c.CSS()
		}
		out = append(out, entry)
	}
	return out
}
