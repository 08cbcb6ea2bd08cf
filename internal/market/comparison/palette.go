package comparison

import (
	"fmt"
	"math"

	"cryptodash/internal/market/snapshot"
)

// Color is an HSL color: hue in degrees, saturation and lightness in percent.
type Color struct {
	H, S, L float64
}

// CSS renders the color in CSS Color 4 space-separated syntax.
func (c Color) CSS() string {
	return fmt.Sprintf("hsl(%g %g%% %g%%)", c.H, c.S, c.L)
}

// RGB converts the color to 8-bit sRGB channels.
func (c Color) RGB() (r, g, b uint8) {
	s, l := c.S/100, c.L/100
	h := math.Mod(c.H, 360)
	if h < 0 {
		h += 360
	}

	chroma := (1 - math.Abs(2*l-1)) * s
	x := chroma * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - chroma/2

	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf, bf = chroma, x, 0
	case h < 120:
		rf, gf, bf = x, chroma, 0
	case h < 180:
		rf, gf, bf = 0, chroma, x
	case h < 240:
		rf, gf, bf = 0, x, chroma
	case h < 300:
		rf, gf, bf = x, 0, chroma
	default:
		rf, gf, bf = chroma, 0, x
	}

	to8 := func(v float64) uint8 {
		return uint8(math.Round((v + m) * 255))
	}
	return to8(rf), to8(gf), to8(bf)
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	r, g, b := c.RGB()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// Palette is a fixed ordered list of series colors.
type Palette []Color

// DefaultPalette holds the twelve muted series colors.
var DefaultPalette = Palette{
	{142, 35, 45}, // green
	{220, 25, 50}, // blue
	{260, 25, 50}, // purple
	{340, 30, 50}, // pink
	{25, 40, 50},  // orange
	{45, 40, 50},  // yellow
	{175, 30, 45}, // cyan
	{0, 50, 55},   // red
	{280, 35, 55}, // violet
	{145, 30, 45}, // emerald
	{200, 30, 50}, // sky
	{40, 35, 50},  // amber
}

// At returns the color for slot i, wrapping around the palette.
func (p Palette) At(i int) Color {
	n := len(p)
	return p[((i%n)+n)%n]
}

// ColorScheme maps an asset to its series color given the full collection.
type ColorScheme interface {
	ColorOf(id string, all snapshot.Collection) (Color, bool)
}

// IndexColors colors an asset by its position in the full, unfiltered collection.
// Selection never changes the result; reordering the collection does.
type IndexColors struct {
	Palette Palette
}

func (c IndexColors) ColorOf(id string, all snapshot.Collection) (Color, bool) {
	return ColorFor(id, all, c.Palette)
}

// ColorFor returns palette[indexOf(id, all) mod len(palette)].
func ColorFor(id string, all snapshot.Collection, p Palette) (Color, bool) {
	if len(p) == 0 {
		return Color{}, false
	}
	i := all.IndexOf(id)
	if i < 0 {
		return Color{}, false
	}
	return p.At(i), true
}

// ColorTable keeps the palette slot of an id for the lifetime of the table, so
// upstream reordering between refreshes does not recolor series. Slots are
// handed out in first-seen order.
type ColorTable struct {
	palette  Palette
	assigned map[string]int
	next     int
}

func NewColorTable(p Palette) *ColorTable {
	return &ColorTable{palette: p, assigned: make(map[string]int)}
}

// Observe assigns slots to ids of all that have none yet.
func (t *ColorTable) Observe(all snapshot.Collection) {
	for _, s := range all {
		if _, ok := t.assigned[s.ID]; ok {
			continue
		}
		t.assigned[s.ID] = t.next
		t.next++
	}
}

// ColorOf returns the retained color of id. all is only consulted for ids
// never observed, which are assigned on the spot.
func (t *ColorTable) ColorOf(id string, all snapshot.Collection) (Color, bool) {
	if len(t.palette) == 0 {
		return Color{}, false
	}
	slot, ok := t.assigned[id]
	if !ok {
		if all.IndexOf(id) < 0 {
			return Color{}, false
		}
		t.Observe(all)
		slot = t.assigned[id]
	}
	return t.palette.At(slot), true
}
