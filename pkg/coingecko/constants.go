package coingecko

import "fmt"

// Period is a named reporting window for percentage-change figures.
type Period string

// PeriodMeta holds the API value and display labels for a Period.
type PeriodMeta struct {
	APIValue     string // value in the price_change_percentage request parameter
	SummaryLabel string // e.g. "7-day"
	ButtonLabel  string // e.g. "7 Days"
	Hours        int
}

const (
	Period1D   Period = "1d"
	Period7D   Period = "7d"
	Period14D  Period = "14d"
	Period30D  Period = "30d"
	Period90D  Period = "90d"
	Period365D Period = "365d"
)

// DefaultPeriod is the period shown before the user picks one.
const DefaultPeriod = Period7D

// Periods lists every reporting period in selector order.
var Periods = []Period{Period1D, Period7D, Period14D, Period30D, Period90D, Period365D}

var validPeriods = map[Period]PeriodMeta{
	Period1D:   {APIValue: "1d", SummaryLabel: "24-hour", ButtonLabel: "24 Hours", Hours: 24},
	Period7D:   {APIValue: "7d", SummaryLabel: "7-day", ButtonLabel: "7 Days", Hours: 168},
	Period14D:  {APIValue: "14d", SummaryLabel: "14-day", ButtonLabel: "14 Days", Hours: 336},
	Period30D:  {APIValue: "30d", SummaryLabel: "30-day", ButtonLabel: "30 Days", Hours: 720},
	Period90D:  {APIValue: "90d", SummaryLabel: "90-day", ButtonLabel: "90 Days", Hours: 2160},
	Period365D: {APIValue: "365d", SummaryLabel: "1-year", ButtonLabel: "1 Year", Hours: 8760},
}

// IsValid checks if the Period is one of the predefined periods.
func (p Period) IsValid() bool {
	_, ok := validPeriods[p]
	return ok
}

// Meta returns the labels for p. Unknown periods fall back to the 7-day labels.
func (p Period) Meta() PeriodMeta {
	if meta, ok := validPeriods[p]; ok {
		return meta
	}
	return validPeriods[Period7D]
}

// ParsePeriod parses a string into a valid Period.
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid period: %q", s)
	}
	return p, nil
}

// SparklineHours is the span covered by sparkline_in_7d.
const SparklineHours = 168
