package editor

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-style/internal/service"
	"github.com/joeblew999/plat-style/internal/templates"
)

// EventHandler streams resource change events to the Datastar UI via SSE.
type EventHandler struct {
	bus      *service.EventBus
	layers   *service.LayerService
	convert  *service.ConvertService
	renderer *templates.Renderer
}

// NewEventHandler creates a new event handler.
func NewEventHandler(bus *service.EventBus, layers *service.LayerService, convert *service.ConvertService, renderer *templates.Renderer) *EventHandler {
	if bus == nil {
		bus = service.DefaultBus
	}
	return &EventHandler{bus: bus, layers: layers, convert: convert, renderer: renderer}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/editor/events", h.Events,
		huma.OperationTags("editor"),
	)
}

func (h *EventHandler) Events(ctx context.Context, input *EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSEContext(humaCtx)
			ch := h.bus.Subscribe()
			defer h.bus.Unsubscribe(ch)

			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-ch:
					switch ev.Resource {
					case service.ResourceLayers:
						sse.PatchElements(renderLayerList(h.renderer, h.layers.List()), "#layer-list")
					case service.ResourceStyles:
						if styles, err := h.convert.List(); err == nil {
							sse.PatchElements(renderStyleList(h.renderer, styles), "#style-list")
						}
					}
					sse.SendSignals(map[string]any{
						"lastEvent": map[string]any{
							"resource": ev.Resource,
							"action":   ev.Action,
							"id":       ev.ID,
							"run":      ev.Run,
						},
					})
				}
			}
		},
	}, nil
}
