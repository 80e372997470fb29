// Package style models the version 8 map style document: sources, layers and
// their paint/layout properties, including data-driven style functions.
package style

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Version is the only style document version written and accepted.
const Version = 8

// Glyphs is the fixed glyph URL template written into every document.
const Glyphs = "mapbox://fonts/mapbox/{fontstack}/{range}.pbf"

// SpriteRef is the sprite reference declared when a sprite sheet exists.
const SpriteRef = "./sprites"

// LabelPrefix tags label layers; the remainder of the id is the source id.
const LabelPrefix = "txt_"

// ErrMissingSource is returned when a layer references a source the
// document does not declare.
var ErrMissingSource = errors.New("source not declared")

// LayerType is the rendering type of a style layer.
type LayerType string

const (
	Circle LayerType = "circle"
	Line   LayerType = "line"
	Fill   LayerType = "fill"
	Symbol LayerType = "symbol"
)

// Valid reports whether t is one of the supported layer types.
func (t LayerType) Valid() bool {
	switch t {
	case Circle, Line, Fill, Symbol:
		return true
	}
	return false
}

// Document is a complete style document.
type Document struct {
	Version int               `json:"version"`
	Name    string            `json:"name"`
	Glyphs  string            `json:"glyphs"`
	Sources map[string]Source `json:"sources"`
	Layers  []Layer           `json:"layers"`
	Sprite  string            `json:"sprite,omitempty"`
}

// Source references a GeoJSON file relative to the document.
type Source struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Layer is one entry of the document's ordered layer list.
type Layer struct {
	ID      string         `json:"id"`
	Source  string         `json:"source"`
	Type    LayerType      `json:"type"`
	MinZoom *int           `json:"minzoom,omitempty"`
	MaxZoom *int           `json:"maxzoom,omitempty"`
	Paint   Paint          `json:"paint"`
	Layout  map[string]any `json:"layout,omitempty"`
}

// New returns an empty document with the fixed header fields filled in.
func New(name string) *Document {
	return &Document{
		Version: Version,
		Name:    name,
		Glyphs:  Glyphs,
		Sources: map[string]Source{},
		Layers:  []Layer{},
	}
}

// GeoJSONSource returns the source entry for a data file of the given id.
func GeoJSONSource(id string) Source {
	return Source{Type: "geojson", Data: "data/" + id + ".geojson"}
}

// LabelID returns the id of the label layer attached to source.
func LabelID(source string) string {
	return LabelPrefix + source
}

// IsLabel reports whether the layer id carries the label tag.
func IsLabel(id string) bool {
	return strings.HasPrefix(id, LabelPrefix)
}

// Validate checks the structural invariants of the document: layer ids are
// unique, every layer type is known and every source reference resolves.
func (d *Document) Validate() error {
	if d.Version != Version {
		return fmt.Errorf("unsupported style version %d", d.Version)
	}
	seen := make(map[string]bool, len(d.Layers))
	for _, l := range d.Layers {
		if seen[l.ID] {
			return fmt.Errorf("duplicate layer id %q", l.ID)
		}
		seen[l.ID] = true
		if !l.Type.Valid() {
			return fmt.Errorf("layer %q: unsupported type %q", l.ID, l.Type)
		}
		if _, ok := d.Sources[l.Source]; !ok {
			return fmt.Errorf("layer %q: source %q: %w", l.ID, l.Source, ErrMissingSource)
		}
	}
	return nil
}

// Decode parses and validates a style document.
func Decode(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing style: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Read loads a style document from disk.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading style: %w", err)
	}
	return Decode(data)
}

// Write persists the document as JSON.
func (d *Document) Write(path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encoding style: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
