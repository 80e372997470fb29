package api

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-style/internal/features"
	"github.com/joeblew999/plat-style/internal/service"
)

// SummaryHandler describes the content of source files.
type SummaryHandler struct {
	sources *service.SourceService
	reader  features.Reader
}

// NewSummaryHandler creates a new source summary handler.
func NewSummaryHandler(sources *service.SourceService, reader features.Reader) *SummaryHandler {
	return &SummaryHandler{sources: sources, reader: reader}
}

// RegisterRoutes registers source summary routes with Huma.
func (h *SummaryHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/sources/{name}/summary", h.GetSummary, op("get-source-summary", "sources"))
}

// SummaryInput names the source file to read.
type SummaryInput struct {
	Name string `path:"name" doc:"Source file name" example:"buildings.geojson"`
}

// SummaryOutput is the response for a source summary.
type SummaryOutput struct {
	Body struct {
		Name       string   `json:"name" doc:"Source file name"`
		Features   int      `json:"features" doc:"Number of features"`
		Geometry   string   `json:"geometry,omitempty" doc:"Layer geometry type: point, line or polygon"`
		Properties []string `json:"properties" doc:"Property names found on the features"`
	}
}

// GetSummary reads a source through the feature readers.
func (h *SummaryHandler) GetSummary(ctx context.Context, input *SummaryInput) (*SummaryOutput, error) {
	if h.sources == nil || h.reader == nil {
		return nil, huma.Error503ServiceUnavailable("Feature reader not available")
	}
	if err := h.sources.Validate(input.Name); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}

	fc, err := h.reader.Read(ctx, filepath.Join(h.sources.SourcesDir(), input.Name))
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("Reading source failed: " + err.Error())
	}

	seen := make(map[string]bool)
	props := []string{}
	for _, f := range fc.Features {
		for k := range f.Properties {
			if !seen[k] {
				seen[k] = true
				props = append(props, k)
			}
		}
	}
	sort.Strings(props)

	out := &SummaryOutput{}
	out.Body.Name = input.Name
	out.Body.Features = len(fc.Features)
	out.Body.Properties = props
	if g, err := features.GeometryOf(fc); err == nil {
		out.Body.Geometry = string(g)
	}
	return out, nil
}
