// Package colors converts between the host color notations ("r,g,b,a" and
// hex) and the "rgb(r,g,b)" strings used in style documents.
package colors

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Default is returned whenever a color cannot be parsed.
const Default = "rgb(0,0,0)"

// ToRGB converts a host color ("255,0,0,255", "255,0,0", "#ff0000" or
// "#f00") to "rgb(r,g,b)". Malformed input yields Default.
func ToRGB(s string) string {
	r, g, b, ok := Parse(s)
	if !ok {
		return Default
	}
	return RGB(r, g, b)
}

// Parse reads a host color into its channels.
func Parse(s string) (r, g, b int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, 0, false
	}
	if parts := strings.Split(s, ","); len(parts) == 3 || len(parts) == 4 {
		return channels(parts[:3])
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return 0, 0, 0, false
	}
	r8, g8, b8 := c.RGB255()
	return int(r8), int(g8), int(b8), true
}

// Channels extracts the first three channels from any style color string,
// e.g. "rgb(1,2,3)" or "rgba(1, 2, 3, 255)", by keeping digits and commas.
func Channels(s string) (r, g, b int, ok bool) {
	var sb strings.Builder
	for _, c := range s {
		if (c >= '0' && c <= '9') || c == ',' {
			sb.WriteRune(c)
		}
	}
	parts := strings.Split(sb.String(), ",")
	if len(parts) < 3 {
		return 0, 0, 0, false
	}
	return channels(parts[:3])
}

func channels(parts []string) (r, g, b int, ok bool) {
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return 0, 0, 0, false
		}
		v[i] = n
	}
	return v[0], v[1], v[2], true
}

// RGB formats channels as "rgb(r,g,b)".
func RGB(r, g, b int) string {
	return fmt.Sprintf("rgb(%d,%d,%d)", r, g, b)
}

// RGBA formats channels with full alpha the way label colors are written:
// "rgba(r, g, b, 255)".
func RGBA(r, g, b int) string {
	return fmt.Sprintf("rgba(%d, %d, %d, 255)", r, g, b)
}

// Host converts a style color back into the host "r,g,b,255" notation.
// Unparseable colors become opaque black.
func Host(s string) string {
	r, g, b, ok := Channels(s)
	if !ok {
		return "0,0,0,255"
	}
	return fmt.Sprintf("%d,%d,%d,255", r, g, b)
}
