package symbology

import (
	"fmt"

	"github.com/joeblew999/plat-style/internal/style"
)

// Classification is the outcome of inspecting a renderer: the style layer
// type to emit and, for data-driven renderers, the function type and the
// attribute it reads.
type Classification struct {
	LayerType style.LayerType
	Function  style.FunctionType
	Attribute string
}

// Classify decides the layer type and styling mode for a renderer on a
// layer of the given geometry. Lines always map to line layers and polygons
// to fill layers. Points map to symbol layers when the representative symbol
// is an SVG marker and to circle layers otherwise.
func Classify(r *Renderer, g Geometry) (Classification, error) {
	var c Classification
	switch r.Kind {
	case Single:
	case Categorized:
		c.Function = style.Categorical
		c.Attribute = r.Attribute
	case Graduated:
		c.Function = style.Interval
		c.Attribute = r.Attribute
	default:
		return Classification{}, fmt.Errorf("%w: %q", ErrUnsupportedRenderer, r.Kind)
	}

	switch g {
	case Line:
		c.LayerType = style.Line
	case Polygon:
		c.LayerType = style.Fill
	case Point:
		c.LayerType = style.Circle
		if s := r.Representative(); s != nil && s.Kind == SvgMarker {
			c.LayerType = style.Symbol
		}
	default:
		return Classification{}, fmt.Errorf("unknown geometry %q", g)
	}
	return c, nil
}

// Admits reports whether a style layer of type t can be applied to a host
// layer of geometry g.
func Admits(g Geometry, t style.LayerType) bool {
	switch g {
	case Point:
		return t == style.Circle || t == style.Symbol
	case Line:
		return t == style.Line
	case Polygon:
		return t == style.Fill
	}
	return false
}

// GeometryFor returns the geometry a style layer type implies.
func GeometryFor(t style.LayerType) Geometry {
	switch t {
	case style.Line:
		return Line
	case style.Fill:
		return Polygon
	}
	return Point
}
