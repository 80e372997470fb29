package convert

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-style/internal/features"
	"github.com/joeblew999/plat-style/internal/labeling"
	"github.com/joeblew999/plat-style/internal/project"
	"github.com/joeblew999/plat-style/internal/style"
	"github.com/joeblew999/plat-style/internal/symbology"
)

type solidIcons struct{}

func (solidIcons) Render(path string, size float64) (image.Image, error) {
	px := int(math.Round(size))
	img := image.NewRGBA(image.Rect(0, 0, px, px))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 200, A: 255}}, image.Point{}, draw.Src)
	return img, nil
}

func writeSource(t *testing.T, dir, name string, g orb.Geometry) string {
	t.Helper()
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(g)
	f.Properties["kind"] = "a"
	fc.Append(f)
	path := filepath.Join(dir, name)
	if err := features.Write(path, fc, features.Options{}); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func newConverter(srcDir string) *Converter {
	return New(Options{SourceDir: srcDir, Icons: solidIcons{}, Logger: quietLogger()})
}

func ptr(f float64) *float64 { return &f }

func TestExportPolygonAndReload(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "parcels.geojson", orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}})

	p := &project.Project{Layers: []project.Layer{{
		Name:     "Parcels",
		Geometry: symbology.Polygon,
		Source:   "parcels.geojson",
		Renderer: symbology.Renderer{Kind: symbology.Single, Symbol: &symbology.Symbol{
			Kind:       symbology.SimpleFill,
			Alpha:      ptr(1),
			Properties: map[string]string{"color": "255,0,0", "outline_color": "0,0,0"},
		}},
	}}}

	out := t.TempDir()
	c := newConverter(src)
	res, err := c.Export(context.Background(), p, out)
	if err != nil {
		t.Fatal(err)
	}
	doc := res.Document
	if len(doc.Layers) != 1 || doc.Layers[0].Type != style.Fill {
		t.Fatalf("layers = %+v", doc.Layers)
	}
	if got := doc.Layers[0].Paint[style.FillColor].Literal(); got != "rgb(255,0,0)" {
		t.Errorf("fill-color = %v", got)
	}
	if doc.Sprite != "" || len(res.Sprites) != 0 {
		t.Errorf("sprite = %q, sprites = %v", doc.Sprite, res.Sprites)
	}
	if doc.Name != project.DefaultName {
		t.Errorf("name = %q", doc.Name)
	}
	if _, err := os.Stat(filepath.Join(out, DataDir, "parcels.geojson")); err != nil {
		t.Errorf("data file: %v", err)
	}

	back, err := c.Load(context.Background(), res.StylePath)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Layers) != 1 {
		t.Fatalf("reloaded layers = %d", len(back.Layers))
	}
	l := back.Layers[0]
	if l.Geometry != symbology.Polygon || l.Renderer.Kind != symbology.Single {
		t.Fatalf("reloaded layer = %+v", l)
	}
	sym := l.Renderer.Symbol
	if sym.Kind != symbology.SimpleFill || sym.Properties["color"] != "255,0,0,255" || *sym.Alpha != 1 {
		t.Errorf("symbol = %+v", sym)
	}
}

func TestExportCircleRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "pts.geojson", orb.MultiPoint{{1, 2}})

	p := &project.Project{Name: "points", Layers: []project.Layer{{
		Name:     "Points",
		Geometry: symbology.Point,
		Source:   "pts.geojson",
		Renderer: symbology.Renderer{Kind: symbology.Single, Symbol: &symbology.Symbol{
			Kind:  symbology.SimpleMarker,
			Alpha: ptr(0.75),
			Properties: map[string]string{
				"size": "2.5", "color": "0,128,255,255", "outline_color": "10,10,10,255", "outline_width": "0.3",
			},
		}},
	}}}

	out := t.TempDir()
	c := newConverter(src)
	res, err := c.Export(context.Background(), p, out)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(res.DataFiles[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `{"type":"Point","coordinates":[1,2]}`) {
		t.Errorf("single-point MultiPoint not flattened: %s", data)
	}

	back, err := c.Load(context.Background(), res.StylePath)
	if err != nil {
		t.Fatal(err)
	}
	if back.Name != "points" {
		t.Errorf("name = %q", back.Name)
	}
	got := back.Layers[0].Renderer.Symbol
	want := p.Layers[0].Renderer.Symbol
	if got.Kind != symbology.SimpleMarker || math.Abs(*got.Alpha-*want.Alpha) > 1e-9 {
		t.Fatalf("symbol = %+v", got)
	}
	for _, k := range []string{"size", "color", "outline_color", "outline_width"} {
		if got.Properties[k] != want.Properties[k] {
			t.Errorf("%s = %q, want %q", k, got.Properties[k], want.Properties[k])
		}
	}
}

func TestStyleSkipsUnsupportedRenderer(t *testing.T) {
	c := newConverter("")
	layers := []project.Layer{
		{Name: "Heat", Geometry: symbology.Point, Renderer: symbology.Renderer{Kind: "heatmap"}},
		{Name: "Roads", Geometry: symbology.Line, Renderer: symbology.Renderer{Kind: symbology.Single, Symbol: &symbology.Symbol{Kind: symbology.SimpleLine}}},
	}
	doc, sprites, err := c.Style("x", layers)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Layers) != 1 || doc.Layers[0].ID != "roads" {
		t.Errorf("layers = %+v", doc.Layers)
	}
	if _, ok := doc.Sources["heat"]; !ok {
		t.Error("skipped layer lost its source")
	}
	if sprites.Len() != 0 || doc.Sprite != "" {
		t.Error("unexpected sprites")
	}
	if err := doc.Validate(); err != nil {
		t.Error(err)
	}
}

func TestExportIconsAndLabels(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "poi.geojson", orb.Point{3, 4})

	size := 11.0
	p := &project.Project{Layers: []project.Layer{{
		Name:         "POI",
		Geometry:     symbology.Point,
		Source:       "poi.geojson",
		Transparency: 0,
		Renderer: symbology.Renderer{Kind: symbology.Categorized, Attribute: "kind", Categories: []symbology.Category{
			{Value: "a", Symbol: &symbology.Symbol{Kind: symbology.SvgMarker, Path: "/icons/pin.svg", Properties: map[string]string{"size": "8"}}},
			{Value: "b", Symbol: &symbology.Symbol{Kind: symbology.SvgMarker, Path: "/icons/star.svg", Properties: map[string]string{"size": "12"}}},
		}},
		Labeling: &labeling.Settings{
			Enabled: true, FieldName: "kind", FontSize: &size, TextColor: [3]int{0, 0, 0},
			XOffset: 1, YOffset: 2, ScaleVisibility: true, ScaleMin: labeling.ToScale(4), ScaleMax: labeling.ToScale(16),
		},
	}}}

	out := t.TempDir()
	c := newConverter(src)
	res, err := c.Export(context.Background(), p, out)
	if err != nil {
		t.Fatal(err)
	}
	doc := res.Document
	if doc.Sprite != style.SpriteRef {
		t.Errorf("sprite = %q", doc.Sprite)
	}
	if len(doc.Layers) != 2 || doc.Layers[0].Type != style.Symbol || doc.Layers[1].ID != "txt_poi" {
		t.Fatalf("layers = %+v", doc.Layers)
	}
	if z := doc.Layers[0].MinZoom; z == nil || *z != 4 {
		t.Errorf("data layer minzoom = %v", z)
	}
	for _, f := range []string{"sprites.png", "sprites@2x.png", "sprites.json", "sprites@2x.json"} {
		if _, err := os.Stat(filepath.Join(out, f)); err != nil {
			t.Errorf("%s: %v", f, err)
		}
	}

	back, err := c.Load(context.Background(), res.StylePath)
	if err != nil {
		t.Fatal(err)
	}
	l := back.Layers[0]
	if l.Renderer.Kind != symbology.Categorized || len(l.Renderer.Categories) != 2 {
		t.Fatalf("renderer = %+v", l.Renderer)
	}
	star := l.Renderer.Categories[1].Symbol
	if star.Kind != symbology.SvgMarker || star.Properties["size"] != "12" || star.Path != filepath.Join(out, "star.svg") {
		t.Errorf("star = %+v", star)
	}
	if _, err := os.Stat(filepath.Join(out, "star.png")); err != nil {
		t.Errorf("materialized icon: %v", err)
	}
	lab := l.Labeling
	if lab == nil || !lab.Enabled || lab.FieldName != "kind" || *lab.FontSize != 11 {
		t.Fatalf("labeling = %+v", lab)
	}
	if lab.XOffset != 1 || lab.YOffset != 1 {
		t.Errorf("offsets = %v,%v, want both from the first component", lab.XOffset, lab.YOffset)
	}
	if !lab.ScaleVisibility || lab.ScaleMin != labeling.ToScale(4) {
		t.Errorf("scale = %+v", lab)
	}
}

type failingIcons struct{}

func (failingIcons) Render(path string, size float64) (image.Image, error) {
	return nil, errors.New("unreadable svg")
}

func TestStyleSkipsLayersWithoutUsableIcons(t *testing.T) {
	marker := symbology.Renderer{
		Kind: symbology.Single, Symbol: &symbology.Symbol{Kind: symbology.SvgMarker, Path: "a.svg"},
	}
	roads := project.Layer{Name: "Roads", Geometry: symbology.Line, Renderer: symbology.Renderer{
		Kind: symbology.Single, Symbol: &symbology.Symbol{Kind: symbology.SimpleLine},
	}}
	for name, icons := range map[string]symbology.IconRenderer{"no renderer": nil, "failing renderer": failingIcons{}} {
		t.Run(name, func(t *testing.T) {
			c := New(Options{Icons: icons, Logger: quietLogger()})
			layers := []project.Layer{{Name: "P", Geometry: symbology.Point, Renderer: marker}, roads}
			doc, sprites, err := c.Style("x", layers)
			if err != nil {
				t.Fatal(err)
			}
			if len(doc.Layers) != 1 || doc.Layers[0].ID != "roads" {
				t.Errorf("layers = %+v", doc.Layers)
			}
			if sprites.Len() != 0 || doc.Sprite != "" {
				t.Errorf("sprite = %q, sprites = %v", doc.Sprite, sprites.Names())
			}
		})
	}
}

func TestStyleSkipsEmptyRenderer(t *testing.T) {
	c := newConverter("")
	layers := []project.Layer{
		{Name: "Zones", Geometry: symbology.Polygon, Renderer: symbology.Renderer{
			Kind: symbology.Categorized, Attribute: "zone", Categories: []symbology.Category{{Value: "res"}, {Value: "com"}},
		}},
		{Name: "Bands", Geometry: symbology.Line, Renderer: symbology.Renderer{Kind: symbology.Graduated, Attribute: "v"}},
		{Name: "Roads", Geometry: symbology.Line, Renderer: symbology.Renderer{Kind: symbology.Single, Symbol: &symbology.Symbol{Kind: symbology.SimpleLine}}},
	}
	if _, _, err := c.LayerStyles(layers[0]); !errors.Is(err, symbology.ErrEmptyRenderer) {
		t.Fatalf("LayerStyles error = %v, want ErrEmptyRenderer", err)
	}
	doc, _, err := c.Style("x", layers)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Layers) != 1 || doc.Layers[0].ID != "roads" {
		t.Fatalf("layers = %+v", doc.Layers)
	}
	for _, l := range doc.Layers {
		if len(l.Paint) == 0 {
			t.Errorf("layer %q has an empty paint block", l.ID)
		}
	}
	if err := doc.Validate(); err != nil {
		t.Error(err)
	}
}

func TestExportSvgFillPatternRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "parcels.geojson", orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}})

	p := &project.Project{Layers: []project.Layer{{
		Name:     "Parcels",
		Geometry: symbology.Polygon,
		Source:   "parcels.geojson",
		Renderer: symbology.Renderer{Kind: symbology.Single, Symbol: &symbology.Symbol{
			Kind:       symbology.SvgFill,
			Path:       "/patterns/hatch.svg",
			Properties: map[string]string{"color": "0,0,255", "size": "6"},
		}},
	}}}

	out := t.TempDir()
	c := newConverter(src)
	res, err := c.Export(context.Background(), p, out)
	if err != nil {
		t.Fatal(err)
	}
	doc := res.Document
	if got := doc.Layers[0].Paint[style.FillPattern].Literal(); got != "hatch" {
		t.Fatalf("fill-pattern = %v, want sprite name", got)
	}
	if doc.Sprite != style.SpriteRef {
		t.Errorf("sprite = %q", doc.Sprite)
	}
	if _, err := os.Stat(filepath.Join(out, "sprites@2x.png")); err != nil {
		t.Errorf("2x sheet: %v", err)
	}

	back, err := c.Load(context.Background(), res.StylePath)
	if err != nil {
		t.Fatal(err)
	}
	sym := back.Layers[0].Renderer.Symbol
	if sym.Kind != symbology.SvgFill || sym.Path != filepath.Join(out, "hatch.svg") {
		t.Errorf("symbol = %+v", sym)
	}
}

func TestExportMissingSourceFile(t *testing.T) {
	c := newConverter(t.TempDir())
	p := &project.Project{Layers: []project.Layer{{
		Name: "gone", Geometry: symbology.Line, Source: "gone.geojson",
		Renderer: symbology.Renderer{Kind: symbology.Single, Symbol: &symbology.Symbol{Kind: symbology.SimpleLine}},
	}}}
	if _, err := c.Export(context.Background(), p, t.TempDir()); err == nil {
		t.Error("expected error for missing source file")
	}
}

func writeDoc(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), StyleFile)
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingSource(t *testing.T) {
	path := writeDoc(t, `{"version":8,"name":"x","glyphs":"","sources":{},
		"layers":[{"id":"a","source":"a","type":"line","paint":{"line-color":"rgb(0,0,0)"}}]}`)
	_, err := newConverter("").Load(context.Background(), path)
	if !errors.Is(err, ErrMissingSource) {
		t.Fatalf("error = %v, want ErrMissingSource", err)
	}
}

func TestLoadOrphanLabel(t *testing.T) {
	path := writeDoc(t, `{"version":8,"name":"x","glyphs":"","sources":{"a":{"type":"geojson","data":"data/a.geojson"}},
		"layers":[{"id":"txt_a","source":"a","type":"symbol","paint":{},"layout":{"text-field":"{n}"}}]}`)
	_, err := newConverter("").Load(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "no data layer") {
		t.Fatalf("error = %v", err)
	}
}

func TestLoadIgnoresMismatchedStyle(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, filepath.Join(dir, DataDir), "a.geojson", orb.Point{0, 0})
	path := filepath.Join(dir, StyleFile)
	doc := `{"version":8,"name":"x","glyphs":"","sources":{"a":{"type":"geojson","data":"data/a.geojson"}},
		"layers":[{"id":"a","source":"a","type":"fill","paint":{"fill-color":"rgb(1,2,3)"}}]}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := newConverter("").Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Layers) != 1 || p.Layers[0].Geometry != symbology.Point || p.Layers[0].Renderer.Kind != "" {
		t.Errorf("layers = %+v", p.Layers)
	}
}
