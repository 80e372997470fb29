package editor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-style/internal/service"
	"github.com/joeblew999/plat-style/internal/templates"
)

// StyleHandler handles style export and import SSE endpoints.
type StyleHandler struct {
	convert  *service.ConvertService
	layers   *service.LayerService
	renderer *templates.Renderer
}

// NewStyleHandler creates a new style handler.
func NewStyleHandler(convert *service.ConvertService, layers *service.LayerService, renderer *templates.Renderer) *StyleHandler {
	return &StyleHandler{convert: convert, layers: layers, renderer: renderer}
}

// RegisterRoutes registers style editor routes with Huma.
func (h *StyleHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/editor/styles", h.ListStyles, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/export", h.Export, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/import", h.Import, huma.OperationTags("editor"))
}

// Export writes the project as a style folder.
// This endpoint receives Datastar signals via RawBody and streams progress via SSE.
func (h *StyleHandler) Export(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}

	// Note: Datastar data-bind creates lowercase signal names
	opts := service.ExportOptions{
		Name:      signals.String("stylename"),
		Title:     signals.String("styletitle"),
		Precision: signals.Int("precision"),
	}
	if opts.Name == "" {
		return nil, huma.Error400BadRequest("Style name is required")
	}

	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSEContext(humaCtx)

			res, err := h.convert.Export(ctx, opts, func(progress int, status string) {
				sse.SendSignals(map[string]any{
					"styleStatus":   status,
					"styleProgress": progress,
				})
			})
			if err != nil {
				sse.SendError(err.Error())
				return
			}

			sse.SendSignals(map[string]any{
				"styleStatus":   "Complete!",
				"styleProgress": 100,
				"success":       fmt.Sprintf("Style %s exported with %d layers", res.Name, res.StyleLayers),
			})
			h.patchStyles(sse)
		},
	}, nil
}

// Import reads a style folder back into the project.
func (h *StyleHandler) Import(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	opts := service.ImportOptions{
		Name:    signals.String("stylename"),
		Replace: signals.Bool("replace"),
	}
	if opts.Name == "" {
		return nil, huma.Error400BadRequest("Style name is required")
	}

	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSEContext(humaCtx)

			res, err := h.convert.Import(ctx, opts, func(progress int, status string) {
				sse.SendSignals(map[string]any{
					"styleStatus":   status,
					"styleProgress": progress,
				})
			})
			if err != nil {
				sse.SendError(err.Error())
				return
			}

			sse.SendSuccess(fmt.Sprintf("Imported %d layers from %s", len(res.Layers), opts.Name))
			sse.PatchElements(renderLayerList(h.renderer, h.layers.List()), "#layer-list")
		},
	}, nil
}

// ListStyles streams the style list as SSE HTML fragments.
func (h *StyleHandler) ListStyles(ctx context.Context, input *EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			h.patchStyles(NewSSEContext(humaCtx))
		},
	}, nil
}

func (h *StyleHandler) patchStyles(sse *SSEContext) {
	styles, err := h.convert.List()
	if err != nil {
		sse.SendError("Failed to list styles: " + err.Error())
		return
	}
	sse.PatchElements(renderStyleList(h.renderer, styles), "#style-list")
}

func renderStyleList(r *templates.Renderer, styles []service.StyleInfo) string {
	var buf bytes.Buffer
	if len(styles) == 0 {
		render(r, &buf, "empty-state", map[string]string{
			"Title":   "No styles exported",
			"Message": "Export the project to create a Mapbox GL style.",
		})
		return buf.String()
	}
	for _, s := range styles {
		render(r, &buf, "style-card", s)
	}
	return buf.String()
}
