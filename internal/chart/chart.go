package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"cryptodash/internal/dashboard"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNothingToRender is returned when no selected series has a usable value.
var ErrNothingToRender = errors.New("no series to render")

const (
	DefaultWidth  = 960
	DefaultHeight = 384
)

type Options struct {
	Width  int
	Height int
	Title  string
}

// RenderPNG draws the selected series of cmp as percentage lines over the
// sample index, one color per asset as assigned in the legend.
func RenderPNG(w io.Writer, cmp dashboard.Comparison, opts Options) error {
	series, minY, maxY := buildSeries(cmp)
	if len(series) == 0 {
		return ErrNothingToRender
	}

	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}

	lo, hi := axisBounds(minY, maxY)
	maxX := float64(len(cmp.Points) - 1)
	if maxX < 1 {
		maxX = 1
	}

	ch := gochart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 20, Left: 16, Right: 12, Bottom: 28}},
		XAxis: gochart.XAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: maxX},
			Ticks: xTicks(cmp.Ticks, maxX),
		},
		YAxis: gochart.YAxis{
			Range:          &gochart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: percentFormatter,
		},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func buildSeries(cmp dashboard.Comparison) ([]gochart.Series, float64, float64) {
	minY, maxY := math.Inf(1), math.Inf(-1)
	var out []gochart.Series

	for _, s := range cmp.Series {
		if !s.Selected {
			continue
		}
		var xs, ys []float64
		for _, p := range cmp.Points {
			v, ok := p.Values[s.ID]
			if !ok {
				continue
			}
			xs = append(xs, float64(p.Time))
			ys = append(ys, v)
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
		if len(xs) == 0 {
			continue
		}
		// A single point has no extent; draw it as a short flat segment.
		if len(xs) == 1 {
			xs = append(xs, xs[0]+0.5)
			ys = append(ys, ys[0])
		}

		col := seriesColor(s.Hex)
		out = append(out, gochart.ContinuousSeries{
			Name:    s.Label,
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor: col,
				StrokeWidth: 2,
				DotWidth:    0,
			},
		})
	}
	return out, minY, maxY
}

func seriesColor(hex string) drawing.Color {
	if hex == "" {
		return gochart.ColorAlternateGray
	}
	return drawing.ColorFromHex(hex)
}

// axisBounds pads [lo, hi] by a tenth of its span and always includes zero,
// the common baseline of every series.
func axisBounds(lo, hi float64) (float64, float64) {
	lo, hi = math.Min(lo, 0), math.Max(hi, 0)
	span := hi - lo
	if span == 0 {
		span = 1
	}
	pad := span / 10
	return math.Floor(lo - pad), math.Ceil(hi + pad)
}

// xTicks places the labelled ticks inside [0, maxX] and pins both ends.
// Explicit ticks set the x range in go-chart, so the ends must always be
// present or the plot is clamped to the last labelled sample.
func xTicks(ticks []dashboard.Tick, maxX float64) []gochart.Tick {
	byValue := map[float64]string{0: "", maxX: ""}
	for _, t := range ticks {
		v := float64(t.Time)
		if v < 0 || v > maxX {
			continue
		}
		if byValue[v] == "" {
			byValue[v] = t.Label
		}
	}

	out := make([]gochart.Tick, 0, len(byValue))
	for v, label := range byValue {
		out = append(out, gochart.Tick{Value: v, Label: label})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

func percentFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.1f%%", f)
	}
	return ""
}
