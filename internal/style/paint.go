package style

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FunctionType selects how a style function matches attribute values.
// The empty FunctionType means constant styling.
type FunctionType string

const (
	Categorical FunctionType = "categorical"
	Interval    FunctionType = "interval"
)

// Stop is one [trigger, value] pair of a style function. For categorical
// functions In is matched exactly; for interval functions it is the inclusive
// lower bound of the range ending at the next stop's trigger.
type Stop struct {
	In  any
	Out any
}

func (s Stop) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{s.In, s.Out})
}

func (s *Stop) UnmarshalJSON(data []byte) error {
	var pair []any
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("stop must have 2 elements, got %d", len(pair))
	}
	s.In, s.Out = pair[0], pair[1]
	return nil
}

// Function is a data-driven property value.
type Function struct {
	Property string       `json:"property"`
	Type     FunctionType `json:"type"`
	Stops    []Stop       `json:"stops"`
}

// Value is either a literal (number, string, array) or a Function.
type Value struct {
	literal any
	fn      *Function
}

// Literal wraps a constant property value.
func Literal(v any) Value { return Value{literal: v} }

// Func wraps a style function.
func Func(f *Function) Value { return Value{fn: f} }

// IsFunction reports whether the value is data driven.
func (v Value) IsFunction() bool { return v.fn != nil }

// Function returns the style function, or nil for literals.
func (v Value) Function() *Function { return v.fn }

// Literal returns the constant value, or nil for functions.
func (v Value) Literal() any { return v.literal }

func (v Value) MarshalJSON() ([]byte, error) {
	if v.fn != nil {
		return json.Marshal(v.fn)
	}
	return json.Marshal(v.literal)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return err
		}
		if _, ok := probe["stops"]; ok {
			var f Function
			if err := json.Unmarshal(trimmed, &f); err != nil {
				return err
			}
			*v = Func(&f)
			return nil
		}
	}
	var lit any
	if err := json.Unmarshal(trimmed, &lit); err != nil {
		return err
	}
	*v = Literal(lit)
	return nil
}

// Paint maps paint property names to their values.
type Paint map[string]Value

// Paint property names, per layer type.
const (
	CircleRadius      = "circle-radius"
	CircleColor       = "circle-color"
	CircleOpacity     = "circle-opacity"
	CircleStrokeWidth = "circle-stroke-width"
	CircleStrokeColor = "circle-stroke-color"

	LineWidth     = "line-width"
	LineOpacity   = "line-opacity"
	LineColor     = "line-color"
	LineOffset    = "line-offset"
	LineDashArray = "line-dasharray"

	FillColor        = "fill-color"
	FillOutlineColor = "fill-outline-color"
	FillPattern      = "fill-pattern"
	FillOpacity      = "fill-opacity"
	FillTranslate    = "fill-translate"

	IconImage = "icon-image"
)

// Properties lists the paint vocabulary of each layer type in emission order.
var Properties = map[LayerType][]string{
	Circle: {CircleRadius, CircleColor, CircleOpacity, CircleStrokeWidth, CircleStrokeColor},
	Line:   {LineWidth, LineOpacity, LineColor, LineOffset, LineDashArray},
	Fill:   {FillColor, FillOutlineColor, FillPattern, FillOpacity, FillTranslate},
	Symbol: {IconImage},
}

// Primary returns the property whose shape (literal or function, and the
// function's type) decides how a layer is read back into a renderer.
func Primary(t LayerType) string {
	switch t {
	case Circle:
		return CircleRadius
	case Line:
		return LineColor
	case Fill:
		return FillColor
	case Symbol:
		return IconImage
	}
	return ""
}
