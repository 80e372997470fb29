package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joeblew999/plat-style/internal/features"
	"github.com/joeblew999/plat-style/internal/project"
	"github.com/joeblew999/plat-style/internal/sprite"
	"github.com/joeblew999/plat-style/internal/style"
	"github.com/joeblew999/plat-style/internal/symbology"
)

// Result describes the files an export produced.
type Result struct {
	Document  *style.Document
	StylePath string
	DataFiles []string
	Sprites   []string
}

// Export converts every layer of p and writes the style document, one data
// file per layer and, when icons were collected, the sprite sheets into
// folder. Any I/O failure aborts the export.
func (c *Converter) Export(ctx context.Context, p *project.Project, folder string) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return c.export(ctx, c.documentName(p), p.Layers, folder)
}

// ExportLayer converts a single layer into folder.
func (c *Converter) ExportLayer(ctx context.Context, l project.Layer, folder string) (*Result, error) {
	p := &project.Project{Layers: []project.Layer{l}}
	return c.Export(ctx, p, folder)
}

func (c *Converter) export(ctx context.Context, name string, layers []project.Layer, folder string) (*Result, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("creating output folder: %w", err)
	}
	res := &Result{StylePath: filepath.Join(folder, StyleFile)}

	c.progress(5, "Building style...")
	doc, sprites, err := c.Style(name, layers)
	if err != nil {
		return nil, err
	}
	res.Document = doc

	if atlas := sprite.Pack(sprites); atlas != nil {
		c.progress(20, fmt.Sprintf("Writing %d sprites...", sprites.Len()))
		if err := atlas.Write(folder); err != nil {
			return nil, fmt.Errorf("writing sprites: %w", err)
		}
		res.Sprites = sprites.Names()
	}

	for i, l := range layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.progress(30+60*i/len(layers), fmt.Sprintf("Writing data for %s...", l.Name))
		path, err := c.writeData(ctx, l, folder)
		if err != nil {
			return nil, err
		}
		res.DataFiles = append(res.DataFiles, path)
	}

	if err := doc.Write(res.StylePath); err != nil {
		return nil, fmt.Errorf("writing style: %w", err)
	}
	c.log.Info("exported style", "name", name, "layers", len(doc.Layers), "sprites", len(res.Sprites), "path", res.StylePath)
	c.progress(100, "Style exported")
	return res, nil
}

func (c *Converter) writeData(ctx context.Context, l project.Layer, folder string) (string, error) {
	src := l.Source
	if src == "" {
		return "", fmt.Errorf("layer %q: no source", l.Name)
	}
	if !filepath.IsAbs(src) && c.opts.SourceDir != "" {
		src = filepath.Join(c.opts.SourceDir, src)
	}
	fc, err := c.opts.Features.Read(ctx, src)
	if err != nil {
		return "", fmt.Errorf("layer %q: %w", l.Name, err)
	}
	path := filepath.Join(folder, DataDir, l.ID()+".geojson")
	opts := features.Options{Precision: c.opts.Precision, FlattenMultiPoint: l.Geometry == symbology.Point}
	if err := features.Write(path, fc, opts); err != nil {
		return "", fmt.Errorf("layer %q: %w", l.Name, err)
	}
	c.log.Debug("wrote layer data", "layer", l.Name, "features", len(fc.Features), "path", path)
	return path, nil
}
