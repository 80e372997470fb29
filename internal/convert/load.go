package convert

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/joeblew999/plat-style/internal/features"
	"github.com/joeblew999/plat-style/internal/labeling"
	"github.com/joeblew999/plat-style/internal/project"
	"github.com/joeblew999/plat-style/internal/sprite"
	"github.com/joeblew999/plat-style/internal/style"
	"github.com/joeblew999/plat-style/internal/symbology"
)

// Load reads the style document at path and rebuilds the project it
// describes. Data layers are restored first; label layers are then applied
// to the data layer sharing their source. Icons referenced by symbol layers
// are extracted from the sprite sheet into the style's folder.
func (c *Converter) Load(ctx context.Context, path string) (*project.Project, error) {
	doc, err := style.Read(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)

	icons, err := iconLoader(doc, dir)
	if err != nil {
		return nil, err
	}

	p := &project.Project{Name: doc.Name}
	bySource := make(map[string]int)
	var labels []style.Layer

	for i, l := range doc.Layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, ok := doc.Sources[l.Source]
		if !ok {
			return nil, fmt.Errorf("layer %q: %q: %w", l.ID, l.Source, ErrMissingSource)
		}
		if style.IsLabel(l.ID) {
			labels = append(labels, l)
			continue
		}
		c.progress(10+80*i/len(doc.Layers), fmt.Sprintf("Loading %s...", l.ID))

		dataPath := filepath.Join(dir, filepath.FromSlash(src.Data))
		layer, err := c.loadLayer(ctx, l, dataPath, icons)
		if err != nil {
			return nil, err
		}
		bySource[l.Source] = len(p.Layers)
		p.Layers = append(p.Layers, layer)
	}

	for _, l := range labels {
		idx, ok := bySource[l.Source]
		if !ok {
			return nil, fmt.Errorf("label layer %q: no data layer for source %q", l.ID, l.Source)
		}
		target := &p.Layers[idx]
		var base labeling.Settings
		if target.Labeling != nil {
			base = *target.Labeling
		}
		s, err := labeling.Read(l, base)
		if err != nil {
			return nil, err
		}
		target.Labeling = &s
	}

	c.log.Info("loaded style", "name", doc.Name, "layers", len(p.Layers), "labels", len(labels))
	c.progress(100, "Style loaded")
	return p, nil
}

func (c *Converter) loadLayer(ctx context.Context, l style.Layer, dataPath string, icons symbology.IconLoader) (project.Layer, error) {
	geom, err := c.detectGeometry(ctx, l, dataPath)
	if err != nil {
		return project.Layer{}, err
	}
	layer := project.Layer{Name: l.ID, Geometry: geom, Source: dataPath}

	r, err := symbology.Interpret(l, geom, icons)
	switch {
	case errors.Is(err, symbology.ErrGeometryMismatch):
		c.log.Warn("ignoring style for layer", "layer", l.ID, "reason", err)
	case err != nil:
		return project.Layer{}, err
	default:
		layer.Renderer = *r
	}
	return layer, nil
}

// detectGeometry takes the geometry of the layer's data file, falling back
// to the one implied by the style layer type when no feature has a geometry.
func (c *Converter) detectGeometry(ctx context.Context, l style.Layer, dataPath string) (symbology.Geometry, error) {
	fc, err := c.opts.Features.Read(ctx, dataPath)
	if err != nil {
		return "", fmt.Errorf("layer %q: %w", l.ID, err)
	}
	if g, err := features.GeometryOf(fc); err == nil {
		return g, nil
	}
	return symbology.GeometryFor(l.Type), nil
}

// iconLoader materialises sprites of doc into dir on demand. Documents
// without a sprite reference get a nil loader.
func iconLoader(doc *style.Document, dir string) (symbology.IconLoader, error) {
	if doc.Sprite == "" {
		return nil, nil
	}
	sheet, err := sprite.Open(filepath.Join(dir, filepath.FromSlash(doc.Sprite)))
	if err != nil {
		return nil, err
	}
	return func(name string) (sprite.Icon, error) {
		return sheet.Materialize(name, dir)
	}, nil
}
