package features

import (
	"fmt"
	"regexp"
)

// DefaultPrecision is the number of decimals kept in coordinates.
const DefaultPrecision = 6

// Options controls Normalize.
type Options struct {
	// Precision is the number of decimals kept; zero means DefaultPrecision.
	Precision int
	// FlattenMultiPoint rewrites single-point MultiPoints as Points.
	FlattenMultiPoint bool
}

var (
	singleMultiPoint = regexp.MustCompile(`\{"type":"MultiPoint","coordinates":\[\[([^\[\]]*)\]\]\}`)
	nullGeometry     = regexp.MustCompile(`"geometry":\{[^{}]*?null\}`)
)

// Normalize rewrites encoded GeoJSON into its on-disk form: decimals beyond
// the precision are truncated, whitespace outside strings is dropped,
// optional MultiPoint flattening is applied and geometries with null
// coordinates become null.
func Normalize(data []byte, opts Options) []byte {
	precision := opts.Precision
	if precision <= 0 {
		precision = DefaultPrecision
	}
	truncate := regexp.MustCompile(fmt.Sprintf(`([0-9]+\.[0-9]{%d})([0-9]+)`, precision))

	out := truncate.ReplaceAll(data, []byte("$1"))
	out = stripSpace(out)
	if opts.FlattenMultiPoint {
		out = singleMultiPoint.ReplaceAll(out, []byte(`{"type":"Point","coordinates":[$1]}`))
	}
	return nullGeometry.ReplaceAll(out, []byte(`"geometry":null`))
}

// stripSpace removes JSON whitespace that is not inside a string literal.
func stripSpace(data []byte) []byte {
	out := make([]byte, 0, len(data))
	inString, escaped := false, false
	for _, c := range data {
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '"':
			inString = true
		}
		out = append(out, c)
	}
	return out
}
