// Package convert assembles style documents from projects and reads them
// back. Export writes the style, the per-layer data files and the sprite
// sheets into one folder; Load rebuilds a project from such a folder.
package convert

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/joeblew999/plat-style/internal/features"
	"github.com/joeblew999/plat-style/internal/labeling"
	"github.com/joeblew999/plat-style/internal/project"
	"github.com/joeblew999/plat-style/internal/sprite"
	"github.com/joeblew999/plat-style/internal/style"
	"github.com/joeblew999/plat-style/internal/symbology"
)

// StyleFile is the name of the style document written by Export.
const StyleFile = "mapbox.json"

// DataDir is the folder, relative to the style, holding layer data files.
const DataDir = "data"

// ErrMissingSource is returned when a style layer references a source the
// document does not declare.
var ErrMissingSource = style.ErrMissingSource

// ProgressFunc is called with progress updates during export and load.
type ProgressFunc func(progress int, status string)

// Options configures a Converter.
type Options struct {
	// Name is the style document name; empty uses the project name or
	// project.DefaultName.
	Name string
	// Precision is the number of coordinate decimals kept in data files.
	Precision int
	// SourceDir resolves relative layer sources.
	SourceDir string
	// Features enumerates layer sources. Defaults to a GeoJSON-only router.
	Features features.Reader
	// Icons rasterises SVG markers. Required for projects with SVG markers.
	Icons symbology.IconRenderer
	Logger   *log.Logger
	Progress ProgressFunc
}

// Converter translates between projects and style documents.
type Converter struct {
	opts Options
	log  *log.Logger
}

// New returns a converter with defaults applied.
func New(opts Options) *Converter {
	if opts.Precision <= 0 {
		opts.Precision = features.DefaultPrecision
	}
	if opts.Features == nil {
		opts.Features = features.NewRouter(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &Converter{opts: opts, log: logger}
}

func (c *Converter) progress(pct int, status string) {
	if c.opts.Progress != nil {
		c.opts.Progress(pct, status)
	}
}

// LayerStyles returns the style layers for one project layer: the data layer
// and, when labeling is enabled, its label layer. Sprites referenced by the
// data layer are returned alongside. Renderers with no style equivalent
// yield an error wrapping symbology.ErrUnsupportedRenderer, renderers
// without any symbol one wrapping symbology.ErrEmptyRenderer.
func (c *Converter) LayerStyles(l project.Layer) ([]style.Layer, sprite.Set, error) {
	id := l.ID()
	cls, err := symbology.Classify(&l.Renderer, l.Geometry)
	if err != nil {
		return nil, sprite.Set{}, fmt.Errorf("layer %q: %w", l.Name, err)
	}
	set, err := l.Renderer.Symbols()
	if err != nil {
		return nil, sprite.Set{}, fmt.Errorf("layer %q: %w", l.Name, err)
	}
	paint, sprites, err := symbology.BuildPaint(set, cls, c.opts.Icons)
	if err != nil {
		return nil, sprite.Set{}, fmt.Errorf("layer %q: %w", l.Name, err)
	}

	data := style.Layer{
		ID:     id,
		Source: id,
		Type:   cls.LayerType,
		Paint:  paint,
	}
	data.MinZoom, data.MaxZoom = labeling.ZoomRange(l.Labeling)

	layers := []style.Layer{data}
	if label, ok := labeling.Layer(id, l.Labeling, l.Transparency); ok {
		layers = append(layers, label)
	}
	return layers, sprites, nil
}

// Style builds the style document for layers. Every layer gets a source;
// layers whose symbology cannot be expressed or rendered are logged and
// produce no style layers. The sprite reference is declared only when some layer produced a
// sprite.
func (c *Converter) Style(name string, layers []project.Layer) (*style.Document, sprite.Set, error) {
	doc := style.New(name)
	var all sprite.Set
	for _, l := range layers {
		id := l.ID()
		doc.Sources[id] = style.GeoJSONSource(id)

		styled, sprites, err := c.LayerStyles(l)
		if err != nil {
			c.log.Warn("skipping layer", "layer", l.Name, "reason", err)
			continue
		}
		doc.Layers = append(doc.Layers, styled...)
		all = all.Merge(sprites)
	}
	if all.Len() > 0 {
		doc.Sprite = style.SpriteRef
	}
	return doc, all, nil
}

func (c *Converter) documentName(p *project.Project) string {
	switch {
	case c.opts.Name != "":
		return c.opts.Name
	case p.Name != "":
		return p.Name
	}
	return project.DefaultName
}
