// Package sprite packs point icons into the single-row sprite sheets
// referenced by style documents and reads icons back out of them.
//
// A sheet is written as four files next to the style document:
// sprites.png and sprites@2x.png hold the pixels, sprites.json and
// sprites@2x.json map each icon name to its rectangle.
package sprite

import (
	"fmt"
	"image"
	"image/draw"
)

// Meta locates one icon inside a sheet.
type Meta struct {
	X          int `json:"x"`
	Y          int `json:"y"`
	Width      int `json:"width"`
	Height     int `json:"height"`
	PixelRatio int `json:"pixelRatio"`
}

// Index maps icon names to their rectangles.
type Index map[string]Meta

// Pair is an icon rendered at 1x and 2x pixel density.
type Pair struct {
	Image   image.Image
	Image2x image.Image
}

// NotFoundError is returned when an icon name is absent from an index.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("sprite %q not found", e.Name)
}

// Set is an insertion-ordered collection of icons keyed by name.
// The zero value is empty and ready to use.
type Set struct {
	names []string
	pairs map[string]Pair
}

// Add stores the pair under name. Re-adding a name replaces its images but
// keeps its original position.
func (s *Set) Add(name string, p Pair) {
	if s.pairs == nil {
		s.pairs = make(map[string]Pair)
	}
	if _, ok := s.pairs[name]; !ok {
		s.names = append(s.names, name)
	}
	s.pairs[name] = p
}

// Has reports whether name is in the set.
func (s *Set) Has(name string) bool {
	_, ok := s.pairs[name]
	return ok
}

// Get returns the pair stored under name.
func (s *Set) Get(name string) (Pair, bool) {
	p, ok := s.pairs[name]
	return p, ok
}

// Names returns icon names in insertion order.
func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

// Len returns the number of icons.
func (s *Set) Len() int {
	return len(s.names)
}

// Merge returns a new set holding s followed by the icons of other.
func (s Set) Merge(other Set) Set {
	var out Set
	for _, n := range s.names {
		out.Add(n, s.pairs[n])
	}
	for _, n := range other.names {
		out.Add(n, other.pairs[n])
	}
	return out
}

// Atlas is a packed sprite sheet at both densities.
type Atlas struct {
	Image   *image.RGBA
	Image2x *image.RGBA
	Index   Index
	Index2x Index
}

// Pack lays the icons out left to right in set order. The 1x sheet is as
// wide as the sum of icon widths and as tall as the tallest icon; the 2x
// sheet doubles both and places each 2x icon at twice the 1x offset.
// Pack returns nil for an empty set.
func Pack(set Set) *Atlas {
	if set.Len() == 0 {
		return nil
	}

	var width, height int
	for _, name := range set.names {
		b := set.pairs[name].Image.Bounds()
		width += b.Dx()
		if b.Dy() > height {
			height = b.Dy()
		}
	}

	a := &Atlas{
		Image:   image.NewRGBA(image.Rect(0, 0, width, height)),
		Image2x: image.NewRGBA(image.Rect(0, 0, width*2, height*2)),
		Index:   make(Index, set.Len()),
		Index2x: make(Index, set.Len()),
	}

	x := 0
	for _, name := range set.names {
		p := set.pairs[name]
		b := p.Image.Bounds()
		draw.Draw(a.Image, image.Rect(x, 0, x+b.Dx(), b.Dy()), p.Image, b.Min, draw.Over)
		a.Index[name] = Meta{X: x, Y: 0, Width: b.Dx(), Height: b.Dy(), PixelRatio: 1}

		b2 := p.Image2x.Bounds()
		draw.Draw(a.Image2x, image.Rect(x*2, 0, x*2+b2.Dx(), b2.Dy()), p.Image2x, b2.Min, draw.Over)
		a.Index2x[name] = Meta{X: x * 2, Y: 0, Width: b2.Dx(), Height: b2.Dy(), PixelRatio: 2}

		x += b.Dx()
	}
	return a
}

// Extract crops the named icon out of the 1x sheet.
func (a *Atlas) Extract(name string) (image.Image, error) {
	return Extract(a.Image, a.Index, name)
}

// Extract crops the rectangle recorded for name out of img.
func Extract(img image.Image, idx Index, name string) (image.Image, error) {
	m, ok := idx[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	rect := image.Rect(m.X, m.Y, m.X+m.Width, m.Y+m.Height)
	if !rect.In(img.Bounds()) {
		return nil, fmt.Errorf("sprite %q: rectangle %v outside sheet %v", name, rect, img.Bounds())
	}
	out := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out, nil
}
