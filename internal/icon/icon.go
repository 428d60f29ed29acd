// Package icon renders per-route badge images.
package icon

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/transit-display/octranspo/internal/colours"
)

const (
	badgeSize = 96
	fontSize  = 40
	// Baseline for the route number. The face's metrics put the visual
	// centre of digits here for the chosen size.
	textBaseline = 62
)

// Renderer composes route badges from the colour cache and an embedded
// TrueType face. Badges are rendered on every call, never cached.
type Renderer struct {
	cache *colours.Cache

	mu   sync.Mutex
	face font.Face
}

// NewRenderer builds a renderer backed by the given colour cache
func NewRenderer(cache *colours.Cache) (*Renderer, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse badge font: %w", err)
	}
	face := truetype.NewFace(f, &truetype.Options{Size: fontSize})
	return &Renderer{cache: cache, face: face}, nil
}

// RenderRouteIcon produces a PNG badge for the route: solid background in the
// route's colour, the route number centered horizontally by measured width,
// drawn at a fixed baseline in the route's text colour.
func (r *Renderer) RenderRouteIcon(routeNo string) ([]byte, error) {
	pair := r.cache.Get(routeNo)

	bg, err := parseHex(pair.Background)
	if err != nil {
		return nil, fmt.Errorf("bad background colour for route %s: %w", routeNo, err)
	}
	fg, err := parseHex(pair.Text)
	if err != nil {
		return nil, fmt.Errorf("bad text colour for route %s: %w", routeNo, err)
	}

	// truetype faces are not safe for concurrent use
	r.mu.Lock()
	defer r.mu.Unlock()

	dc := gg.NewContext(badgeSize, badgeSize)
	dc.SetColor(bg)
	dc.Clear()

	dc.SetFontFace(r.face)
	dc.SetColor(fg)
	w, _ := dc.MeasureString(routeNo)
	dc.DrawString(routeNo, (badgeSize-w)/2, textBaseline)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode badge: %w", err)
	}
	return buf.Bytes(), nil
}

// parseHex decodes a 6-digit RRGGBB colour, with or without a leading '#'
func parseHex(s string) (color.Color, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return nil, fmt.Errorf("colour %q is not RRGGBB", s)
	}
	var rv, gv, bv uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &rv, &gv, &bv); err != nil {
		return nil, fmt.Errorf("colour %q is not RRGGBB", s)
	}
	return color.NRGBA{R: rv, G: gv, B: bv, A: 255}, nil
}
