//go:build integration

// Tests for the generated client SDK against an in-process server.
// Generate the client first: go generate ./pkg/styleclient
//
// Run: go test -tags=integration ./pkg/styleclient/
package styleclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"

	"github.com/joeblew999/plat-style/internal/api"
	"github.com/joeblew999/plat-style/internal/project"
	"github.com/joeblew999/plat-style/internal/service"
	"github.com/joeblew999/plat-style/internal/symbology"
	"github.com/joeblew999/plat-style/pkg/styleclient"
)

type fixture struct {
	client styleclient.PlatStyleAPIClient
	layers *service.LayerService
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	src := `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{}}]}`
	if err := os.MkdirAll(filepath.Join(dir, "sources"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sources", "parcels.geojson"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	bus := service.NewEventBus()
	layers, err := service.NewLayerService(dir, bus)
	if err != nil {
		t.Fatal(err)
	}
	svc := &api.Services{
		Layer:  layers,
		Source: service.NewSourceService(dir),
		Convert: service.NewConvertService(service.ConvertConfig{
			DataDir: dir,
			Layers:  layers,
			Logger:  log.New(io.Discard),
			Bus:     bus,
		}),
	}

	handler, humaAPI := humatest.New(t)
	huma.AutoRegister(humaAPI, api.NewAPIHandler(svc))
	api.NewInfoHandler(dir, false).RegisterRoutes(humaAPI)

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return fixture{client: styleclient.New(ts.URL), layers: layers}
}

func (f fixture) addParcels(t *testing.T) project.Layer {
	t.Helper()
	l, err := f.layers.Create(project.Layer{
		Name:     "Parcels",
		Geometry: symbology.Polygon,
		Source:   "parcels.geojson",
		Renderer: symbology.Renderer{Kind: symbology.Single, Symbol: &symbology.Symbol{
			Kind:       symbology.SimpleFill,
			Properties: map[string]string{"color": "0,255,0,255", "outline_color": "0,0,0,255"},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestHealthAndInfo(t *testing.T) {
	c := newFixture(t).client
	ctx := context.Background()

	_, health, err := c.Health(ctx)
	if err != nil || health.Status != "ok" {
		t.Fatalf("health = %+v, %v", health, err)
	}
	_, info, err := c.GetInfo(ctx)
	if err != nil || info.Name != "plat-style" {
		t.Fatalf("info = %+v, %v", info, err)
	}
}

func TestLayers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addParcels(t).ID()

	_, list, err := f.client.ListLayers(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %+v, %v", list, err)
	}
	_, layer, err := f.client.GetLayer(ctx, id)
	if err != nil {
		t.Fatal("get:", err)
	}
	if layer.Name != "Parcels" {
		t.Fatalf("name = %q, want Parcels", layer.Name)
	}

	if _, _, err := f.client.DeleteLayer(ctx, id); err != nil {
		t.Fatal("delete:", err)
	}
	resp, _, _ := f.client.GetLayer(ctx, id)
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete = %v", resp)
	}
}

func TestExportImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addParcels(t)

	_, res, err := f.client.ExportStyle(ctx, styleclient.ExportOptions{Name: "parcels_map"})
	if err != nil {
		t.Fatal("export:", err)
	}
	if res.StyleLayers != 1 {
		t.Errorf("export = %+v", res)
	}

	_, styles, err := f.client.ListStyles(ctx)
	if err != nil || len(styles) != 1 {
		t.Fatalf("styles = %+v, %v", styles, err)
	}
	resp, _, err := f.client.GetStyle(ctx, "parcels_map")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("style = %v, %v", resp, err)
	}

	_, imp, err := f.client.ImportStyle(ctx, styleclient.ImportOptions{Name: "parcels_map"})
	if err != nil {
		t.Fatal("import:", err)
	}
	if len(imp.Layers) != 0 {
		t.Errorf("import without replace added existing layer: %v", imp.Layers)
	}
}

func TestExportRejectsBadName(t *testing.T) {
	c := newFixture(t).client
	resp, _, err := c.ExportStyle(context.Background(), styleclient.ExportOptions{Name: "../escape"})
	if err == nil && (resp == nil || resp.StatusCode < 400) {
		t.Fatalf("export with path name = %v", resp)
	}
}
