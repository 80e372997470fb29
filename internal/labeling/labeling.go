// Package labeling translates host label settings to and from the label
// layers of a style document.
package labeling

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joeblew999/plat-style/internal/colors"
	"github.com/joeblew999/plat-style/internal/style"
)

// Label layer property names.
const (
	TextField     = "text-field"
	TextSize      = "text-size"
	TextRotate    = "text-rotate"
	TextOffset    = "text-offset"
	TextOpacity   = "text-opacity"
	TextColor     = "text-color"
	TextHaloColor = "text-halo-color"
	TextHaloWidth = "text-halo-width"
)

// DefaultFontSize is written when the settings carry no font size.
const DefaultFontSize = 1.0

// scaleBase calibrates the zoom/scale conversion.
const scaleBase = 1e9

// Placement is the host label placement mode.
type Placement string

const (
	PlacementDefault   Placement = ""
	PlacementOverPoint Placement = "over-point"
)

// Settings are the label settings of one host layer.
type Settings struct {
	Enabled         bool      `json:"enabled" yaml:"enabled" toml:"enabled"`
	FieldName       string    `json:"fieldName" yaml:"field" toml:"field"`
	FontSize        *float64  `json:"fontSize,omitempty" yaml:"fontSize,omitempty" toml:"fontSize,omitempty"`
	TextColor       [3]int    `json:"textColor" yaml:"textColor" toml:"textColor"`
	BufferDraw      bool      `json:"bufferDraw,omitempty" yaml:"bufferDraw,omitempty" toml:"bufferDraw,omitempty"`
	BufferColor     [3]int    `json:"bufferColor" yaml:"bufferColor" toml:"bufferColor"`
	BufferSize      float64   `json:"bufferSize,omitempty" yaml:"bufferSize,omitempty" toml:"bufferSize,omitempty"`
	AngleOffset     float64   `json:"angleOffset,omitempty" yaml:"angleOffset,omitempty" toml:"angleOffset,omitempty"`
	XOffset         float64   `json:"xOffset,omitempty" yaml:"xOffset,omitempty" toml:"xOffset,omitempty"`
	YOffset         float64   `json:"yOffset,omitempty" yaml:"yOffset,omitempty" toml:"yOffset,omitempty"`
	ScaleVisibility bool      `json:"scaleVisibility,omitempty" yaml:"scaleVisibility,omitempty" toml:"scaleVisibility,omitempty"`
	ScaleMin        float64   `json:"scaleMin,omitempty" yaml:"scaleMin,omitempty" toml:"scaleMin,omitempty"`
	ScaleMax        float64   `json:"scaleMax,omitempty" yaml:"scaleMax,omitempty" toml:"scaleMax,omitempty"`
	Placement       Placement `json:"placement,omitempty" yaml:"placement,omitempty" toml:"placement,omitempty"`
}

// ToZoomLevel converts a map scale denominator to a zoom level.
func ToZoomLevel(scale float64) int {
	return int(math.Log2(scaleBase / scale))
}

// ToScale converts a zoom level to a map scale denominator.
func ToScale(zoom int) float64 {
	return scaleBase / math.Pow(2, float64(zoom))
}

// ZoomRange returns the minzoom and maxzoom implied by the settings' scale
// visibility, or nils when visibility is not scale dependent.
func ZoomRange(s *Settings) (minZoom, maxZoom *int) {
	if s == nil || !s.ScaleVisibility || s.ScaleMin <= 0 || s.ScaleMax <= 0 {
		return nil, nil
	}
	lo, hi := ToZoomLevel(s.ScaleMin), ToZoomLevel(s.ScaleMax)
	return &lo, &hi
}

// Layer builds the label layer for the data layer with the given source id.
// It reports false when labeling is disabled. transparency is the host
// layer's 0..255 transparency.
func Layer(source string, s *Settings, transparency int) (style.Layer, bool) {
	if s == nil || !s.Enabled {
		return style.Layer{}, false
	}
	size := DefaultFontSize
	if s.FontSize != nil {
		size = *s.FontSize
	}
	l := style.Layer{
		ID:     style.LabelID(source),
		Source: source,
		Type:   style.Symbol,
		Layout: map[string]any{
			TextField:   "{" + s.FieldName + "}",
			TextSize:    size,
			TextRotate:  0 - s.AngleOffset,
			TextOffset:  format(s.XOffset) + "," + format(s.YOffset),
			TextOpacity: float64(255-transparency) / 255,
		},
		Paint: style.Paint{
			TextColor: style.Literal(colors.RGBA(s.TextColor[0], s.TextColor[1], s.TextColor[2])),
		},
	}
	if s.BufferDraw {
		l.Paint[TextHaloColor] = style.Literal(colors.RGBA(s.BufferColor[0], s.BufferColor[1], s.BufferColor[2]))
		l.Paint[TextHaloWidth] = style.Literal(s.BufferSize)
	}
	l.MinZoom, l.MaxZoom = ZoomRange(s)
	return l, true
}

// Read rebuilds label settings from a label layer, starting from base. Both
// offsets are taken from the first component of text-offset. Halo values
// are accepted from paint or layout.
func Read(l style.Layer, base Settings) (Settings, error) {
	s := base
	s.Enabled = true

	field, ok := l.Layout[TextField].(string)
	if !ok {
		return Settings{}, fmt.Errorf("label layer %q: missing %s", l.ID, TextField)
	}
	s.FieldName = strings.NewReplacer("{", "", "}", "").Replace(field)

	if raw, ok := l.Layout[TextOffset]; ok {
		x, err := firstOffset(raw)
		if err != nil {
			return Settings{}, fmt.Errorf("label layer %q: %w", l.ID, err)
		}
		s.XOffset, s.YOffset = x, x
	}

	if l.MinZoom != nil && l.MaxZoom != nil {
		s.ScaleMin = ToScale(*l.MinZoom)
		s.ScaleMax = ToScale(*l.MaxZoom)
		s.ScaleVisibility = true
		s.Placement = PlacementOverPoint
	}

	if f, ok := number(l.Layout[TextSize]); ok {
		s.FontSize = &f
	}
	if f, ok := number(l.Layout[TextRotate]); ok {
		s.AngleOffset = 0 - f
	}
	if c, ok := lookup(l, TextColor).(string); ok {
		if r, g, b, ok := colors.Channels(c); ok {
			s.TextColor = [3]int{r, g, b}
		}
	}
	if c, ok := lookup(l, TextHaloColor).(string); ok {
		if r, g, b, ok := colors.Channels(c); ok {
			s.BufferColor = [3]int{r, g, b}
			s.BufferDraw = true
		}
	}
	if f, ok := number(lookup(l, TextHaloWidth)); ok {
		s.BufferSize = f
		s.BufferDraw = true
	}
	return s, nil
}

// lookup returns a literal from paint, falling back to layout.
func lookup(l style.Layer, prop string) any {
	if v, ok := l.Paint[prop]; ok && !v.IsFunction() {
		return v.Literal()
	}
	return l.Layout[prop]
}

func firstOffset(raw any) (float64, error) {
	switch v := raw.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.Split(v, ",")[0]), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", TextOffset, v)
		}
		return f, nil
	case []any:
		if len(v) > 0 {
			if f, ok := number(v[0]); ok {
				return f, nil
			}
		}
	}
	return 0, fmt.Errorf("invalid %s %v", TextOffset, raw)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func format(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
