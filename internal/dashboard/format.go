package dashboard

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const notAvailable = "n/a"

var (
	trillion = decimal.New(1, 12)
	billion  = decimal.New(1, 9)
	million  = decimal.New(1, 6)
)

// FormatPrice renders a USD price with at least two fraction digits and at
// most two, or six for prices below one dollar, e.g. "$67,000.50", "$0.123457".
func FormatPrice(price float64) string {
	if !finite(price) {
		return notAvailable
	}
	maxFrac := int32(2)
	if price < 1 {
		maxFrac = 6
	}

	d := decimal.NewFromFloat(price).Round(maxFrac)
	s := d.Abs().StringFixed(maxFrac)
	intPart, frac, _ := strings.Cut(s, ".")
	frac = strings.TrimRight(frac, "0")
	for len(frac) < 2 {
		frac += "0"
	}

	out := "$" + groupThousands(intPart) + "." + frac
	if d.IsNegative() {
		return "-" + out
	}
	return out
}

// FormatMarketCap abbreviates large values: "$1.32T", "$850.10B", "$12.00M", "$999".
func FormatMarketCap(marketCap float64) string {
	if !finite(marketCap) {
		return notAvailable
	}
	d := decimal.NewFromFloat(marketCap)
	switch {
	case d.GreaterThanOrEqual(trillion):
		return "$" + d.Div(trillion).StringFixed(2) + "T"
	case d.GreaterThanOrEqual(billion):
		return "$" + d.Div(billion).StringFixed(2) + "B"
	case d.GreaterThanOrEqual(million):
		return "$" + d.Div(million).StringFixed(2) + "M"
	default:
		return "$" + d.StringFixed(0)
	}
}

// FormatChange renders a percentage with two decimals and an explicit sign
// for non-negative values: "+3.40%", "-1.25%".
func FormatChange(pct float64) string {
	if !finite(pct) {
		return notAvailable
	}
	s := decimal.NewFromFloat(pct).StringFixed(2) + "%"
	if pct >= 0 {
		return "+" + s
	}
	return s
}

// FormatAbsChange renders |pct| with two decimals, for cards that show the
// direction with an arrow instead of a sign.
func FormatAbsChange(pct float64) string {
	if !finite(pct) {
		return notAvailable
	}
	return decimal.NewFromFloat(math.Abs(pct)).StringFixed(2) + "%"
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
