package symbology

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joeblew999/plat-style/internal/colors"
	"github.com/joeblew999/plat-style/internal/sprite"
	"github.com/joeblew999/plat-style/internal/style"
)

// UnboundedUpper is the upper bound given to the last range of a graduated
// renderer read from interval stops.
const UnboundedUpper = 100000000000

// ErrGeometryMismatch is returned when a style layer type cannot be applied
// to the host layer's geometry, e.g. a fill layer on points.
var ErrGeometryMismatch = errors.New("style layer type does not match layer geometry")

// StopMismatchError reports companion paint functions whose stop lists are
// not index-aligned with the layer's primary property.
type StopMismatchError struct {
	Layer    string
	Property string
	Want     int
	Got      int
}

func (e *StopMismatchError) Error() string {
	return fmt.Sprintf("layer %q: %s has %d stops, expected %d", e.Layer, e.Property, e.Got, e.Want)
}

// IconLoader materialises a sprite icon by name for use by an SVG marker.
type IconLoader func(name string) (sprite.Icon, error)

// stopView reads paint values for one branch of a renderer: the literal
// value of constant properties, or the stop at index of function ones.
type stopView struct {
	paint style.Paint
	index int
}

func (v stopView) get(prop string) (any, bool) {
	val, ok := v.paint[prop]
	if !ok {
		return nil, false
	}
	if fn := val.Function(); fn != nil {
		if v.index < 0 || v.index >= len(fn.Stops) {
			return nil, false
		}
		out := fn.Stops[v.index].Out
		return out, out != nil
	}
	lit := val.Literal()
	return lit, lit != nil
}

func (v stopView) number(prop string, def float64) float64 {
	if raw, ok := v.get(prop); ok {
		if f, ok := toFloat(raw); ok {
			return f
		}
	}
	return def
}

func (v stopView) color(prop string) string {
	if raw, ok := v.get(prop); ok {
		if s, ok := raw.(string); ok {
			return colors.Host(s)
		}
	}
	return colors.Host(colors.Default)
}

// Interpret rebuilds a host renderer from a style layer. The primary
// property of the layer type decides the renderer kind: a literal gives a
// single-symbol renderer, a categorical function a categorized one and an
// interval function a graduated one. Companion properties are read from the
// same stop index and must have as many stops as the primary property.
func Interpret(l style.Layer, g Geometry, icons IconLoader) (*Renderer, error) {
	if !Admits(g, l.Type) {
		return nil, fmt.Errorf("layer %q: %s on %s: %w", l.ID, l.Type, g, ErrGeometryMismatch)
	}
	primaryName := style.Primary(l.Type)
	primary, ok := l.Paint[primaryName]
	if !ok {
		return nil, fmt.Errorf("layer %q: missing paint property %s", l.ID, primaryName)
	}

	build := func(index int) (*Symbol, error) {
		return buildSymbol(l.Type, stopView{paint: l.Paint, index: index}, icons)
	}

	fn := primary.Function()
	if fn == nil {
		sym, err := build(-1)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", l.ID, err)
		}
		return &Renderer{Kind: Single, Symbol: sym}, nil
	}

	n := len(fn.Stops)
	for _, prop := range style.Properties[l.Type] {
		if other := l.Paint[prop].Function(); other != nil && len(other.Stops) != n {
			return nil, &StopMismatchError{Layer: l.ID, Property: prop, Want: n, Got: len(other.Stops)}
		}
	}

	switch fn.Type {
	case style.Categorical:
		r := &Renderer{Kind: Categorized, Attribute: fn.Property}
		for i, stop := range fn.Stops {
			sym, err := build(i)
			if err != nil {
				return nil, fmt.Errorf("layer %q stop %d: %w", l.ID, i, err)
			}
			r.Categories = append(r.Categories, Category{
				Value:  stop.In,
				Label:  fmt.Sprint(stop.In),
				Symbol: sym,
			})
		}
		return r, nil

	case style.Interval:
		r := &Renderer{Kind: Graduated, Attribute: fn.Property}
		for i, stop := range fn.Stops {
			lower, ok := toFloat(stop.In)
			if !ok {
				return nil, fmt.Errorf("layer %q stop %d: interval bound %v is not a number", l.ID, i, stop.In)
			}
			upper := float64(UnboundedUpper)
			if i+1 < n {
				if upper, ok = toFloat(fn.Stops[i+1].In); !ok {
					return nil, fmt.Errorf("layer %q stop %d: interval bound %v is not a number", l.ID, i+1, fn.Stops[i+1].In)
				}
			}
			sym, err := build(i)
			if err != nil {
				return nil, fmt.Errorf("layer %q stop %d: %w", l.ID, i, err)
			}
			r.Ranges = append(r.Ranges, Range{
				Lower:  lower,
				Upper:  upper,
				Label:  formatNumber(lower) + "-" + formatNumber(upper),
				Symbol: sym,
			})
		}
		return r, nil
	}
	return nil, fmt.Errorf("layer %q: unknown function type %q", l.ID, fn.Type)
}

func buildSymbol(t style.LayerType, v stopView, icons IconLoader) (*Symbol, error) {
	switch t {
	case style.Circle:
		return &Symbol{
			Kind:  SimpleMarker,
			Alpha: ptr(v.number(style.CircleOpacity, 1)),
			Properties: map[string]string{
				"size":          formatNumber(v.number(style.CircleRadius, 1)),
				"color":         v.color(style.CircleColor),
				"outline_color": v.color(style.CircleStrokeColor),
				"outline_width": formatNumber(v.number(style.CircleStrokeWidth, 1)),
			},
		}, nil

	case style.Line:
		dash := []float64{1}
		if raw, ok := v.get(style.LineDashArray); ok {
			if d, ok := toFloats(raw); ok && len(d) > 0 {
				dash = d
			}
		}
		lineStyle := "dash"
		if len(dash) == 1 && dash[0] == 1 {
			lineStyle = "solid"
		}
		return &Symbol{
			Kind:       SimpleLine,
			Alpha:      ptr(v.number(style.LineOpacity, 1)),
			DashVector: dash,
			Properties: map[string]string{
				"line_color": v.color(style.LineColor),
				"line_width": formatNumber(v.number(style.LineWidth, 1)),
				"offset":     formatNumber(v.number(style.LineOffset, 0)),
				"line_style": lineStyle,
			},
		}, nil

	case style.Fill:
		x, y := 0.0, 0.0
		if raw, ok := v.get(style.FillTranslate); ok {
			var err error
			if x, y, err = parseOffset(raw); err != nil {
				return nil, err
			}
		}
		sym := &Symbol{
			Kind:  SimpleFill,
			Alpha: ptr(v.number(style.FillOpacity, 1)),
			Properties: map[string]string{
				"color":         v.color(style.FillColor),
				"outline_color": v.color(style.FillOutlineColor),
				"offset":        formatNumber(x) + "," + formatNumber(y),
			},
		}
		if raw, ok := v.get(style.FillPattern); ok {
			if name, ok := raw.(string); ok && name != "" {
				icon, err := loadIcon(icons, name)
				if err != nil {
					return nil, err
				}
				sym.Kind = SvgFill
				sym.Path = icon.SVGPath
			}
		}
		return sym, nil

	case style.Symbol:
		raw, ok := v.get(style.IconImage)
		name, isString := raw.(string)
		if !ok || !isString {
			return nil, fmt.Errorf("icon-image must be a sprite name")
		}
		icon, err := loadIcon(icons, name)
		if err != nil {
			return nil, err
		}
		size := math.Max(float64(icon.Width), float64(icon.Height))
		return &Symbol{
			Kind:       SvgMarker,
			Path:       icon.SVGPath,
			Properties: map[string]string{"size": formatNumber(size)},
		}, nil
	}
	return nil, fmt.Errorf("unsupported layer type %q", t)
}

func loadIcon(icons IconLoader, name string) (sprite.Icon, error) {
	if icons == nil {
		return sprite.Icon{}, fmt.Errorf("icon %q: no sprite sheet available", name)
	}
	return icons(name)
}

// parseOffset accepts "x,y" strings, [x, y] arrays and plain numbers.
func parseOffset(raw any) (float64, float64, error) {
	switch v := raw.(type) {
	case string:
		parts := strings.Split(v, ",")
		if len(parts) != 2 {
			return 0, 0, fmt.Errorf("invalid offset %q", v)
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errX != nil || errY != nil {
			return 0, 0, fmt.Errorf("invalid offset %q", v)
		}
		return x, y, nil
	case []any:
		if d, ok := toFloats(v); ok && len(d) == 2 {
			return d[0], d[1], nil
		}
	default:
		if f, ok := toFloat(v); ok {
			return f, f, nil
		}
	}
	return 0, 0, fmt.Errorf("invalid offset %v", raw)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toFloats(v any) ([]float64, bool) {
	switch arr := v.(type) {
	case []float64:
		return arr, true
	case []any:
		out := make([]float64, 0, len(arr))
		for _, e := range arr {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	}
	return nil, false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
