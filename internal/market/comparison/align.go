package comparison

import (
	"fmt"
	"math"

	"cryptodash/internal/market/snapshot"
	"cryptodash/pkg/coingecko"
)

// AlignedPoint is one row of the comparison table. Values maps asset id to the
// percentage change from that asset's own first sample. An asset without a
// value at Time is a gap, not a zero.
type AlignedPoint struct {
	Time   int                `json:"time"`
	Values map[string]float64 `json:"values"`
}

// Usable reports whether v can serve as a price sample. NaN and infinities are
// missing data; an exact zero is rejected as well since it cannot be a
// percentage baseline.
func Usable(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MaxLength is the longest sparkline among all snapshots, selected or not.
func MaxLength(all snapshot.Collection) int {
	n := 0
	for _, s := range all {
		if len(s.Sparkline) > n {
			n = len(s.Sparkline)
		}
	}
	return n
}

// Align builds the comparison table for the selected assets of all.
//
// The result always has MaxLength(all) rows, indexed 0..n-1. A selected asset
// contributes at index i when its sparkline reaches i and both its first sample
// and sample i are usable. An asset whose first sample is unusable contributes
// nothing at all. Every call recomputes from scratch.
func Align(all snapshot.Collection, sel Membership) []AlignedPoint {
	maxLength := MaxLength(all)
	if maxLength == 0 {
		return []AlignedPoint{}
	}

	series := make([]snapshot.AssetSnapshot, 0, len(all))
	for _, s := range all {
		if s.HasSparkline() && sel.IsSelected(s.ID) && Usable(s.Sparkline[0]) {
			series = append(series, s)
		}
	}

	points := make([]AlignedPoint, maxLength)
	for i := range points {
		point := AlignedPoint{Time: i, Values: make(map[string]float64, len(series))}
		for _, s := range series {
			prices := s.Sparkline
			if i >= len(prices) || !Usable(prices[i]) {
				continue
			}
			point.Values[s.ID] = (prices[i] - prices[0]) / prices[0] * 100
		}
		points[i] = point
	}
	return points
}

// Labels returns the display label of every asset of all. The label is the
// symbol, except that assets sharing a symbol are told apart as "SYMBOL (id)".
func Labels(all snapshot.Collection) map[string]string {
	count := make(map[string]int, len(all))
	for _, s := range all {
		count[s.Symbol]++
	}

	labels := make(map[string]string, len(all))
	for _, s := range all {
		if count[s.Symbol] > 1 {
			labels[s.ID] = fmt.Sprintf("%s (%s)", s.Symbol, s.ID)
			continue
		}
		labels[s.ID] = s.Symbol
	}
	return labels
}

// Rows flattens points into chart rows of the form {"time": i, label: value}.
// Ids without a label fall back to the id itself.
func Rows(points []AlignedPoint, labels map[string]string) []map[string]any {
	rows := make([]map[string]any, len(points))
	for i, p := range points {
		row := make(map[string]any, len(p.Values)+1)
		row["time"] = p.Time
		for id, v := range p.Values {
			label, ok := labels[id]
			if !ok {
				label = id
			}
			row[label] = v
		}
		rows[i] = row
	}
	return rows
}

// TickLabel names sample index i of a length-sample sparkline spanning
// coingecko.SparklineHours: "Start" at the first hour, "Nd" on whole days,
// and "" elsewhere.
func TickLabel(i, length int) string {
	if length <= 0 {
		return ""
	}
	hours := i * coingecko.SparklineHours / length
	if hours == 0 {
		return "Start"
	}
	if hours%24 == 0 {
		return fmt.Sprintf("%dd", hours/24)
	}
	return ""
}
