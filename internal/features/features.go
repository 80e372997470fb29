// Package features enumerates the features of a layer source and writes the
// per-layer GeoJSON data files referenced by style documents.
package features

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-style/internal/symbology"
)

// Reader enumerates the features of a source as geometry plus properties.
type Reader interface {
	Read(ctx context.Context, path string) (*geojson.FeatureCollection, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context, path string) (*geojson.FeatureCollection, error)

func (f ReaderFunc) Read(ctx context.Context, path string) (*geojson.FeatureCollection, error) {
	return f(ctx, path)
}

// GeoJSONReader reads GeoJSON feature collections from disk.
type GeoJSONReader struct{}

// Read parses the file at path.
func (GeoJSONReader) Read(ctx context.Context, path string) (*geojson.FeatureCollection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading features: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return fc, nil
}

// Router dispatches to a Reader by file extension.
type Router struct {
	byExt    map[string]Reader
	fallback Reader
}

// NewRouter returns a router that reads .geojson and .json files itself and
// hands every other extension to fallback, which may be nil.
func NewRouter(fallback Reader) *Router {
	return &Router{
		byExt: map[string]Reader{
			".geojson": GeoJSONReader{},
			".json":    GeoJSONReader{},
		},
		fallback: fallback,
	}
}

// Handle registers r for an extension such as ".parquet".
func (rt *Router) Handle(ext string, r Reader) {
	rt.byExt[strings.ToLower(ext)] = r
}

func (rt *Router) Read(ctx context.Context, path string) (*geojson.FeatureCollection, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if r, ok := rt.byExt[ext]; ok {
		return r.Read(ctx, path)
	}
	if rt.fallback == nil {
		return nil, fmt.Errorf("no feature reader for %q files", ext)
	}
	return rt.fallback.Read(ctx, path)
}

// Write encodes fc, normalizes the text and writes it to path.
func Write(path string, fc *geojson.FeatureCollection, opts Options) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, Normalize(data, opts), 0644)
}

// GeometryOf returns the host geometry type of the first feature that has
// a geometry.
func GeometryOf(fc *geojson.FeatureCollection) (symbology.Geometry, error) {
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		return symbology.ParseGeometry(f.Geometry.GeoJSONType())
	}
	return "", fmt.Errorf("no feature has a geometry")
}
