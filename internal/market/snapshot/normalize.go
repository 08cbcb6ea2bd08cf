package snapshot

import (
	"strings"

	"cryptodash/pkg/coingecko"
)

// FromRecord maps one raw coins/markets record into an AssetSnapshot.
//
// The 7-day change defaults to 0 when absent; the 1d/14d/30d/90d/365d changes
// stay nil. Numeric values are not range checked.
func FromRecord(r coingecko.MarketRecord) AssetSnapshot {
	s := AssetSnapshot{
		ID:             r.ID,
		Symbol:         strings.ToUpper(r.Symbol),
		Name:           r.Name,
		Image:          r.Image,
		CurrentPrice:   r.CurrentPrice,
		MarketCap:      r.MarketCap,
		MarketCapRank:  r.MarketCapRank,
		TotalVolume:    r.TotalVolume,
		PriceChange24h: r.PriceChangePercentage24h,

		PriceChange1d:   copyFloat(r.PriceChange1dInCurrency),
		PriceChange14d:  copyFloat(r.PriceChange14dInCurrency),
		PriceChange30d:  copyFloat(r.PriceChange30dInCurrency),
		PriceChange90d:  copyFloat(r.PriceChange90dInCurrency),
		PriceChange365d: copyFloat(r.PriceChange1yInCurrency),
	}

	if r.PriceChange7dInCurrency != nil {
		s.PriceChange7d = *r.PriceChange7dInCurrency
	}

	if r.SparklineIn7d != nil && len(r.SparklineIn7d.Price) > 0 {
		s.Sparkline = append([]float64(nil), r.SparklineIn7d.Price...)
	}

	return s
}

// FromRecords normalizes a whole batch. A malformed record never fails the batch.
func FromRecords(records []coingecko.MarketRecord) Collection {
	out := make(Collection, 0, len(records))
	for _, r := range records {
		out = append(out, FromRecord(r))
	}
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
