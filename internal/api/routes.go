// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-style/internal/project"
	"github.com/joeblew999/plat-style/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Layer   *service.LayerService
	Source  *service.SourceService
	Convert *service.ConvertService
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"buildings"`
}

type NameInput struct {
	Name string `path:"name" doc:"Style name" example:"city"`
}

// StyleOutput carries a style document as written to disk.
type StyleOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type LayerOutput struct {
	Body project.Layer
}

type LayersOutput struct {
	Body []project.Layer
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type CreatedLayerBody struct {
	ID      string        `json:"id" doc:"Generated layer ID"`
	Layer   project.Layer `json:"layer" doc:"Created layer"`
	Message string        `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// op sets the operation ID, which names the method in the generated Go
// client, and tags the operation.
func op(id, tag string) func(*huma.Operation) {
	return func(o *huma.Operation) {
		o.OperationID = id
		o.Tags = append(o.Tags, tag)
	}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, op("health", "health"))
}

// RegisterLayers registers layer CRUD routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, op("list-layers", "layers"))
	huma.Post(api, "/api/v1/layers", h.CreateLayer, op("create-layer", "layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, op("get-layer", "layers"))
	huma.Put(api, "/api/v1/layers/{id}", h.PutLayer, op("update-layer", "layers"))
	huma.Delete(api, "/api/v1/layers/{id}", h.DeleteLayer, op("delete-layer", "layers"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, op("list-sources", "sources"))
}

// RegisterStyles registers style export and import routes.
func (h *APIHandler) RegisterStyles(api huma.API) {
	huma.Get(api, "/api/v1/styles", h.GetStyles, op("list-styles", "styles"))
	huma.Get(api, "/api/v1/styles/{name}", h.GetStyle, op("get-style", "styles"))
	huma.Post(api, "/api/v1/styles/export", h.ExportStyle, op("export-style", "styles"))
	huma.Post(api, "/api/v1/styles/import", h.ImportStyle, op("import-style", "styles"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	if h.svc == nil || h.svc.Layer == nil {
		return &LayersOutput{Body: []project.Layer{}}, nil
	}
	return &LayersOutput{Body: h.svc.Layer.List()}, nil
}

// checkSource rejects relative sources that do not name a file in the
// sources directory. Absolute paths are taken as given.
func (h *APIHandler) checkSource(source string) error {
	if h.svc.Source == nil || filepath.IsAbs(source) {
		return nil
	}
	if err := h.svc.Source.Validate(source); err != nil {
		return huma.Error422UnprocessableEntity("invalid source: " + err.Error())
	}
	return nil
}

func (h *APIHandler) CreateLayer(ctx context.Context, input *struct{ Body project.Layer }) (*struct{ Body CreatedLayerBody }, error) {
	if h.svc == nil || h.svc.Layer == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	if err := h.checkSource(input.Body.Source); err != nil {
		return nil, err
	}
	created, err := h.svc.Layer.Create(input.Body)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &struct{ Body CreatedLayerBody }{Body: CreatedLayerBody{
		ID: created.ID(), Layer: created, Message: "Layer created",
	}}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*LayerOutput, error) {
	if h.svc == nil || h.svc.Layer == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	layer, ok := h.svc.Layer.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	return &LayerOutput{Body: layer}, nil
}

func (h *APIHandler) PutLayer(ctx context.Context, input *struct {
	IDInput
	Body project.Layer
}) (*LayerOutput, error) {
	if h.svc == nil || h.svc.Layer == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	if _, ok := h.svc.Layer.Get(input.ID); !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	if err := h.checkSource(input.Body.Source); err != nil {
		return nil, err
	}
	updated, err := h.svc.Layer.Update(input.ID, input.Body)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &LayerOutput{Body: updated}, nil
}

func (h *APIHandler) DeleteLayer(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Layer == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	if err := h.svc.Layer.Delete(input.ID); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Layer deleted"}}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc == nil || h.svc.Source == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources, err := h.svc.Source.List()
	if err != nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

func (h *APIHandler) GetStyles(ctx context.Context, input *struct{}) (*struct{ Body []service.StyleInfo }, error) {
	if h.svc == nil || h.svc.Convert == nil {
		return &struct{ Body []service.StyleInfo }{Body: []service.StyleInfo{}}, nil
	}
	styles, err := h.svc.Convert.List()
	if err != nil {
		return nil, huma.Error500InternalServerError("listing styles", err)
	}
	return &struct{ Body []service.StyleInfo }{Body: styles}, nil
}

func (h *APIHandler) GetStyle(ctx context.Context, input *NameInput) (*StyleOutput, error) {
	if h.svc == nil || h.svc.Convert == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	doc, err := h.svc.Convert.Style(input.Name)
	if err != nil {
		return nil, huma.Error404NotFound("style not found")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding style", err)
	}
	return &StyleOutput{ContentType: "application/json", Body: data}, nil
}

func (h *APIHandler) ExportStyle(ctx context.Context, input *struct{ Body service.ExportOptions }) (*struct{ Body service.ExportResult }, error) {
	if h.svc == nil || h.svc.Convert == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	res, err := h.svc.Convert.Export(ctx, input.Body, nil)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	return &struct{ Body service.ExportResult }{Body: *res}, nil
}

func (h *APIHandler) ImportStyle(ctx context.Context, input *struct{ Body service.ImportOptions }) (*struct{ Body service.ImportResult }, error) {
	if h.svc == nil || h.svc.Convert == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	res, err := h.svc.Convert.Import(ctx, input.Body, nil)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	return &struct{ Body service.ImportResult }{Body: *res}, nil
}
