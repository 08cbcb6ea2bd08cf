package dashboard

import (
	"context"
	"sync"
	"time"

	"cryptodash/internal/market/comparison"
	"cryptodash/internal/market/snapshot"
	"cryptodash/internal/market/source"
	"cryptodash/pkg/coingecko"

	"go.uber.org/zap"
)

// DataSource is the query cache the dashboard reads from.
type DataSource interface {
	source.Source
	Ensure(ctx context.Context, key source.Key) source.Result
	Refetch(ctx context.Context, key source.Key) source.Result
}

type Options struct {
	Key             source.Key
	Palette         comparison.Palette
	StableColors    bool
	Provider        string
	RefreshInterval time.Duration
}

// Dashboard is the single owner of the selection and of the collection
// identity it was initialized for. All reads go through the data source.
type Dashboard struct {
	src    DataSource
	opts   Options
	logger *zap.Logger

	mu        sync.Mutex
	selection *comparison.Selection
	identity  string
	seeded    bool
	colors    comparison.ColorScheme
	table     *comparison.ColorTable
}

func New(src DataSource, opts Options, logger *zap.Logger) *Dashboard {
	if len(opts.Palette) == 0 {
		opts.Palette = comparison.DefaultPalette
	}
	d := &Dashboard{
		src:       src,
		opts:      opts,
		logger:    logger,
		selection: comparison.NewSelection(),
	}
	if opts.StableColors {
		d.table = comparison.NewColorTable(opts.Palette)
		d.colors = d.table
	} else {
		d.colors = comparison.IndexColors{Palette: opts.Palette}
	}
	return d
}

// View fetches when the cached collection is stale or missing, then builds
// the view for period.
func (d *Dashboard) View(ctx context.Context, period coingecko.Period) View {
	return d.build(d.src.Ensure(ctx, d.opts.Key), period)
}

// Current builds the view from whatever the cache holds, without fetching.
func (d *Dashboard) Current(period coingecko.Period) View {
	return d.build(d.src.GetLatest(d.opts.Key), period)
}

// Refresh forces a refetch, joining one already in flight.
func (d *Dashboard) Refresh(ctx context.Context) source.Result {
	d.src.Invalidate(d.opts.Key)
	return d.src.Refetch(ctx, d.opts.Key)
}

// Toggle flips id in the selection and reports whether it is now selected.
// Ids outside the current collection are ignored.
func (d *Dashboard) Toggle(id string) bool {
	res := d.src.GetLatest(d.opts.Key)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.syncLocked(res.Snapshots)
	if res.Snapshots.IndexOf(id) < 0 {
		return false
	}
	selected := d.selection.Toggle(id)
	d.logger.Debug("selection toggled", zap.String("id", id), zap.Bool("selected", selected))
	return selected
}

// Selection returns a copy of the current selection.
func (d *Dashboard) Selection() *comparison.Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selection.Clone()
}

// syncLocked resets the selection to every asset when the collection
// identity changed. A refresh returning the same ids keeps the selection.
func (d *Dashboard) syncLocked(all snapshot.Collection) {
	if all == nil {
		return
	}
	identity := all.Identity()
	if d.seeded && identity == d.identity {
		return
	}
	d.selection.Initialize(all.IDs())
	d.identity = identity
	d.seeded = true
	if d.table != nil {
		d.table.Observe(all)
	}
	d.logger.Debug("selection initialized", zap.Int("count", len(all)))
}

func (d *Dashboard) build(res source.Result, period coingecko.Period) View {
	if !period.IsValid() {
		period = coingecko.DefaultPeriod
	}
	v := View{
		Period:     periodInfo(period),
		Refreshing: res.Fetching,
		Footer: Footer{
			Provider:       d.opts.Provider,
			RefreshSeconds: int(d.opts.RefreshInterval / time.Second),
		},
	}

	switch res.State {
	case source.StateFailed:
		v.State = StateError
		if res.Err != nil {
			v.Error = res.Err.Error()
		}
		return v
	case source.StatePending:
		v.State = StateLoading
		return v
	}

	all := res.Snapshots
	fetchedAt := res.FetchedAt
	v.State = StateReady
	v.FetchedAt = &fetchedAt
	v.Footer.Coins = len(all)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.syncLocked(all)

	v.Cards = d.cards(all)
	v.Comparison = d.comparison(all, period)
	return v
}

// cards and comparison must be called with d.mu held.
func (d *Dashboard) cards(all snapshot.Collection) []Card {
	out := make([]Card, 0, len(all))
	for _, s := range all {
		c := Card{
			ID:          s.ID,
			Symbol:      s.Symbol,
			Name:        s.Name,
			Image:       s.Image,
			Rank:        s.MarketCapRank,
			Price:       FormatPrice(s.CurrentPrice),
			MarketCap:   FormatMarketCap(s.MarketCap),
			Change24h:   FormatAbsChange(s.PriceChange24h),
			Change24hUp: s.PriceChange24h >= 0,
			Change7d:    FormatChange(s.PriceChange7d),
			Change7dUp:  s.PriceChange7d >= 0,
			Selected:    d.selection.IsSelected(s.ID),
			Sparkline:   s.Sparkline,
		}
		if color, ok := d.colors.ColorOf(s.ID, all); ok {
			c.Color = color.CSS()
		}
		out = append(out, c)
	}
	return out
}

func (d *Dashboard) comparison(all snapshot.Collection, period coingecko.Period) Comparison {
	labels := comparison.Labels(all)
	points := comparison.Align(all, d.selection)

	series := make([]Series, 0, len(all))
	for _, s := range all {
		entry := Series{
			ID:       s.ID,
			Symbol:   s.Symbol,
			Label:    labels[s.ID],
			Selected: d.selection.IsSelected(s.ID),
			HasData:  s.HasSparkline(),
		}
		if color, ok := d.colors.ColorOf(s.ID, all); ok {
			entry.Color = color.CSS()
			entry.Hex = color.Hex()
		}
		series = append(series, entry)
	}

	// Each label is placed once, at the first sample that reaches it.
	ticks := make([]Tick, 0)
	seen := make(map[string]bool)
	for _, p := range points {
		label := comparison.TickLabel(p.Time, len(points))
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		ticks = append(ticks, Tick{Time: p.Time, Label: label})
	}

	return Comparison{
		Series:  series,
		Rows:    comparison.Rows(points, labels),
		Ticks:   ticks,
		Summary: comparison.Summarize(all, d.selection, period, d.colors),
		Empty:   d.selection.Len() == 0,
		Points:  points,
	}
}
