package editor

import (
	"bytes"
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-style/internal/project"
	"github.com/joeblew999/plat-style/internal/service"
	"github.com/joeblew999/plat-style/internal/templates"
)

type LayerHandler struct {
	layerService  *service.LayerService
	sourceService *service.SourceService
	renderer      *templates.Renderer
}

func NewLayerHandler(layerService *service.LayerService, sourceService *service.SourceService, renderer *templates.Renderer) *LayerHandler {
	return &LayerHandler{layerService: layerService, sourceService: sourceService, renderer: renderer}
}

func (h *LayerHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/editor/layers", h.ListLayers, huma.OperationTags("editor"))
	huma.Delete(api, "/api/v1/editor/layers/{id}", h.DeleteLayer, huma.OperationTags("editor"))
	huma.Get(api, "/api/v1/editor/sources/select", h.ListSourcesSelect, huma.OperationTags("editor"))
}

func (h *LayerHandler) ListLayers(ctx context.Context, input *EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSEContext(humaCtx)
			sse.PatchElements(renderLayerList(h.renderer, h.layerService.List()), "#layer-list")
		},
	}, nil
}

type DeleteLayerInput struct {
	ID string `path:"id" doc:"Layer ID to delete"`
}

func (h *LayerHandler) DeleteLayer(ctx context.Context, input *DeleteLayerInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSEContext(humaCtx)

			if err := h.layerService.Delete(input.ID); err != nil {
				sse.SendError(err.Error())
				return
			}

			sse.SendSuccess("Layer deleted")
			sse.PatchElements(renderLayerList(h.renderer, h.layerService.List()), "#layer-list")
		},
	}, nil
}

// ListSourcesSelect streams the source files as select options.
func (h *LayerHandler) ListSourcesSelect(ctx context.Context, input *EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSEContext(humaCtx)
			sources, err := h.sourceService.List()
			if err != nil {
				sse.SendError("Failed to list sources: " + err.Error())
				return
			}
			var buf bytes.Buffer
			render(h.renderer, &buf, "select-option", SelectOptionData{Label: "-- Select a source file --"})
			for _, s := range sources {
				render(h.renderer, &buf, "select-option", SelectOptionData{
					Value: s.Name, Label: s.Name + " (" + s.Size + ")",
				})
			}
			sse.PatchElements(buf.String(), "#source-select")
		},
	}, nil
}

type LayerRowData struct {
	ID       string
	Name     string
	Geometry string
	Renderer string
	Source   string
	Labels   bool
}

func renderLayerList(r *templates.Renderer, layers []project.Layer) string {
	var buf bytes.Buffer
	if len(layers) == 0 {
		render(r, &buf, "empty-state", map[string]string{
			"Title": "No layers configured", "Message": "Add a layer or import a style to get started",
		})
		return buf.String()
	}
	for _, l := range layers {
		render(r, &buf, "layer-row", LayerRowData{
			ID:       l.ID(),
			Name:     l.Name,
			Geometry: string(l.Geometry),
			Renderer: string(l.Renderer.Kind),
			Source:   l.Source,
			Labels:   l.Labeling != nil && l.Labeling.Enabled,
		})
	}
	return buf.String()
}
