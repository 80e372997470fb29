package symbology

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/joeblew999/plat-style/internal/colors"
	"github.com/joeblew999/plat-style/internal/sprite"
	"github.com/joeblew999/plat-style/internal/style"
)

// DefaultIconSize is the pixel size of SVG markers that do not set "size".
const DefaultIconSize = 16

// IconRenderer rasterises an SVG marker at a pixel size.
type IconRenderer interface {
	Render(path string, size float64) (image.Image, error)
}

// extractor reads one paint value from a symbol. An absent result means
// the property does not apply to the symbol.
type extractor func(*Symbol) Optional[any]

func number(key string, def *float64) extractor {
	return func(s *Symbol) Optional[any] {
		raw := s.Lookup(key)
		if !raw.Ok {
			if def == nil {
				return None[any]()
			}
			return Some[any](*def)
		}
		if f := s.Number(key); f.Ok {
			return Some[any](f.Value)
		}
		// Non-numeric values such as "x,y" offsets are passed through.
		return Some[any](raw.Value)
	}
}

func color(key string) extractor {
	return func(s *Symbol) Optional[any] {
		raw := s.Lookup(key)
		if !raw.Ok {
			return Some[any](colors.Default)
		}
		return Some[any](colors.ToRGB(raw.Value))
	}
}

func alpha(s *Symbol) Optional[any] {
	if s.Alpha == nil {
		return Some[any](1.0)
	}
	return Some[any](*s.Alpha)
}

func lineDash(s *Symbol) Optional[any] {
	ls := s.Lookup("line_style")
	if !ls.Ok || ls.Value == "solid" {
		return Some[any]([]float64{1})
	}
	if len(s.DashVector) > 0 {
		return Some[any](append([]float64(nil), s.DashVector...))
	}
	return Some[any]([]float64{3, 3})
}

func fillPattern(s *Symbol) Optional[any] {
	if s.Kind != SvgFill || s.Path == "" {
		return None[any]()
	}
	return Some[any](IconName(s))
}

func iconImage(s *Symbol) Optional[any] {
	return Some[any](IconName(s))
}

// IconName is the sprite name of an SVG marker: its file name without
// directory or extension.
func IconName(s *Symbol) string {
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IconSize is the 1x pixel size an SVG marker is rendered at.
func IconSize(s *Symbol) float64 {
	if v := s.Number("size"); v.Ok && v.Value > 0 {
		return v.Value
	}
	return DefaultIconSize
}

func ptr(f float64) *float64 { return &f }

var extractors = map[string]extractor{
	style.CircleRadius:      number("size", ptr(1)),
	style.CircleColor:       color("color"),
	style.CircleOpacity:     alpha,
	style.CircleStrokeWidth: number("outline_width", ptr(1)),
	style.CircleStrokeColor: color("outline_color"),

	style.LineWidth:     number("line_width", ptr(1)),
	style.LineOpacity:   alpha,
	style.LineColor:     color("line_color"),
	style.LineOffset:    number("offset", nil),
	style.LineDashArray: lineDash,

	style.FillColor:        color("color"),
	style.FillOutlineColor: color("outline_color"),
	style.FillPattern:      fillPattern,
	style.FillOpacity:      alpha,
	style.FillTranslate:    number("offset", nil),

	style.IconImage: iconImage,
}

// BuildPaint derives the paint block for a classified symbol set. Constant
// sets produce literals; classified sets produce one style function per
// property. A property is omitted when no symbol yields a value for it.
//
// For symbol layers the icons of every distinct marker, and for fill layers
// the tiles of every SVG fill pattern, are rendered at 1x and 2x and
// returned as a sprite set; the 2x icon is rendered from the vector source
// at double size.
func BuildPaint(set SymbolSet, c Classification, icons IconRenderer) (style.Paint, sprite.Set, error) {
	var sprites sprite.Set
	for _, s := range set.Symbols {
		if !needsSprite(c.LayerType, s) {
			continue
		}
		name := IconName(s)
		if sprites.Has(name) {
			continue
		}
		pair, err := renderIcon(icons, s)
		if err != nil {
			return nil, sprite.Set{}, fmt.Errorf("icon %q: %w", name, err)
		}
		sprites.Add(name, pair)
	}

	paint := style.Paint{}
	for _, prop := range style.Properties[c.LayerType] {
		if v, ok := paintValue(set, c, extractors[prop]); ok {
			paint[prop] = v
		}
	}
	return paint, sprites, nil
}

func needsSprite(t style.LayerType, s *Symbol) bool {
	switch t {
	case style.Symbol:
		return true
	case style.Fill:
		return s.Kind == SvgFill && s.Path != ""
	}
	return false
}

func renderIcon(icons IconRenderer, s *Symbol) (sprite.Pair, error) {
	if icons == nil {
		return sprite.Pair{}, fmt.Errorf("no icon renderer configured")
	}
	size := IconSize(s)
	img, err := icons.Render(s.Path, size)
	if err != nil {
		return sprite.Pair{}, err
	}
	img2x, err := icons.Render(s.Path, size*2)
	if err != nil {
		return sprite.Pair{}, err
	}
	return sprite.Pair{Image: img, Image2x: img2x}, nil
}

func paintValue(set SymbolSet, c Classification, ex extractor) (style.Value, bool) {
	if set.Constant() {
		if len(set.Symbols) == 0 {
			return style.Value{}, false
		}
		v := ex(set.Symbols[0])
		if !v.Ok {
			return style.Value{}, false
		}
		return style.Literal(v.Value), true
	}

	fn := &style.Function{Property: c.Attribute, Type: c.Function, Stops: make([]style.Stop, 0, len(set.Symbols))}
	found := false
	for i, s := range set.Symbols {
		v := ex(s)
		var out any
		if v.Ok {
			out = v.Value
			found = true
		}
		fn.Stops = append(fn.Stops, style.Stop{In: set.Keys[i], Out: out})
	}
	if !found {
		return style.Value{}, false
	}
	return style.Func(fn), true
}
