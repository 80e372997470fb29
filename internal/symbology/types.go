// Package symbology translates host renderers (single symbol, categorized,
// graduated) to style paint properties and back.
package symbology

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Geometry is the geometry type of a host layer.
type Geometry string

const (
	Point   Geometry = "point"
	Line    Geometry = "line"
	Polygon Geometry = "polygon"
)

// ParseGeometry accepts the geometry names used in project files and the
// GeoJSON geometry type names.
func ParseGeometry(s string) (Geometry, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "point", "multipoint":
		return Point, nil
	case "line", "linestring", "multilinestring":
		return Line, nil
	case "polygon", "multipolygon":
		return Polygon, nil
	}
	return "", fmt.Errorf("unknown geometry type %q", s)
}

// RendererKind tags the variant held by a Renderer.
type RendererKind string

const (
	Single      RendererKind = "single"
	Categorized RendererKind = "categorized"
	Graduated   RendererKind = "graduated"
)

// ErrUnsupportedRenderer is returned for renderer kinds with no style
// equivalent (heatmaps, rule based, ...). Callers skip such layers.
var ErrUnsupportedRenderer = errors.New("unsupported renderer")

// ErrEmptyRenderer is returned when a renderer has no usable symbol. Callers
// skip such layers.
var ErrEmptyRenderer = errors.New("renderer has no symbols")

// Renderer is a tagged variant: Kind selects which of Symbol, Categories or
// Ranges is meaningful. Attribute names the classification field for the
// categorized and graduated kinds.
type Renderer struct {
	Kind       RendererKind `json:"kind" yaml:"kind" toml:"kind" doc:"single, categorized or graduated"`
	Attribute  string       `json:"attribute,omitempty" yaml:"attribute,omitempty" toml:"attribute,omitempty" doc:"Classification attribute"`
	Symbol     *Symbol      `json:"symbol,omitempty" yaml:"symbol,omitempty" toml:"symbol,omitempty"`
	Categories []Category   `json:"categories,omitempty" yaml:"categories,omitempty" toml:"categories,omitempty"`
	Ranges     []Range      `json:"ranges,omitempty" yaml:"ranges,omitempty" toml:"ranges,omitempty"`
}

// Category is one exact-match branch of a categorized renderer.
type Category struct {
	Value  any     `json:"value" yaml:"value" toml:"value"`
	Label  string  `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
	Symbol *Symbol `json:"symbol" yaml:"symbol" toml:"symbol"`
}

// Range is one [Lower, Upper) branch of a graduated renderer.
type Range struct {
	Lower  float64 `json:"lower" yaml:"lower" toml:"lower"`
	Upper  float64 `json:"upper" yaml:"upper" toml:"upper"`
	Label  string  `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
	Symbol *Symbol `json:"symbol" yaml:"symbol" toml:"symbol"`
}

// SymbolKind is the visual primitive of a symbol.
type SymbolKind string

const (
	SimpleMarker SymbolKind = "simple-marker"
	SvgMarker    SymbolKind = "svg-marker"
	SimpleLine   SymbolKind = "simple-line"
	SimpleFill   SymbolKind = "simple-fill"
	SvgFill      SymbolKind = "svg-fill"
)

// Symbol is one visual definition. Properties holds the host's string
// property bag (color, outline_color, size, line_width, offset, ...); Path
// is the SVG file of svg-marker and svg-fill symbols.
type Symbol struct {
	Kind       SymbolKind        `json:"kind" yaml:"kind" toml:"kind"`
	Alpha      *float64          `json:"alpha,omitempty" yaml:"alpha,omitempty" toml:"alpha,omitempty" minimum:"0" maximum:"1"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty" toml:"properties,omitempty"`
	Path       string            `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
	DashVector []float64         `json:"dashVector,omitempty" yaml:"dashVector,omitempty" toml:"dashVector,omitempty"`
}

// Optional is the result of a property lookup: a value or nothing.
type Optional[T any] struct {
	Value T
	Ok    bool
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] { return Optional[T]{Value: v, Ok: true} }

// None is the absent value.
func None[T any]() Optional[T] { return Optional[T]{} }

// OrElse resolves the optional against a fallback.
func (o Optional[T]) OrElse(def T) T {
	if o.Ok {
		return o.Value
	}
	return def
}

// Lookup returns the named host property if the symbol defines it.
func (s *Symbol) Lookup(key string) Optional[string] {
	if s == nil || s.Properties == nil {
		return None[string]()
	}
	v, ok := s.Properties[key]
	if !ok {
		return None[string]()
	}
	return Some(v)
}

// Number looks a property up as a float.
func (s *Symbol) Number(key string) Optional[float64] {
	v := s.Lookup(key)
	if !v.Ok {
		return None[float64]()
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
	if err != nil {
		return None[float64]()
	}
	return Some(f)
}

func (s *Symbol) set(key, value string) {
	if s.Properties == nil {
		s.Properties = make(map[string]string)
	}
	s.Properties[key] = value
}

// Representative returns the symbol used to decide the layer type: the
// single symbol, or the first category or range that carries one. Mixed
// icon and non-icon categories within one layer are not supported.
func (r *Renderer) Representative() *Symbol {
	switch r.Kind {
	case Single:
		return r.Symbol
	case Categorized:
		for _, c := range r.Categories {
			if c.Symbol != nil {
				return c.Symbol
			}
		}
	case Graduated:
		for _, rg := range r.Ranges {
			if rg.Symbol != nil {
				return rg.Symbol
			}
		}
	}
	return nil
}

// SymbolSet is the symbols of a renderer in classification order. Keys is
// nil for single-symbol renderers.
type SymbolSet struct {
	Keys    []any
	Symbols []*Symbol
}

// Constant reports whether the set holds a single unclassified symbol.
func (s SymbolSet) Constant() bool { return s.Keys == nil }

// Symbols flattens the renderer into a SymbolSet. Branches without a
// symbol are dropped; a renderer left with none returns ErrEmptyRenderer.
func (r *Renderer) Symbols() (SymbolSet, error) {
	switch r.Kind {
	case Single:
		if r.Symbol == nil {
			return SymbolSet{}, fmt.Errorf("%w: single renderer without symbol", ErrEmptyRenderer)
		}
		return SymbolSet{Symbols: []*Symbol{r.Symbol}}, nil
	case Categorized:
		set := SymbolSet{Keys: []any{}}
		for _, c := range r.Categories {
			if c.Symbol == nil {
				continue
			}
			set.Keys = append(set.Keys, c.Value)
			set.Symbols = append(set.Symbols, c.Symbol)
		}
		if len(set.Symbols) == 0 {
			return SymbolSet{}, fmt.Errorf("%w: no category carries a symbol", ErrEmptyRenderer)
		}
		return set, nil
	case Graduated:
		set := SymbolSet{Keys: []any{}}
		for _, rg := range r.Ranges {
			if rg.Symbol == nil {
				continue
			}
			set.Keys = append(set.Keys, rg.Lower)
			set.Symbols = append(set.Symbols, rg.Symbol)
		}
		if len(set.Symbols) == 0 {
			return SymbolSet{}, fmt.Errorf("%w: no range carries a symbol", ErrEmptyRenderer)
		}
		return set, nil
	}
	return SymbolSet{}, fmt.Errorf("%w: %q", ErrUnsupportedRenderer, r.Kind)
}
