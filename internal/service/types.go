// Package service contains business logic for the plat-style server.
package service

import "github.com/joeblew999/plat-style/internal/convert"

// ProgressFunc is called with progress updates during conversions.
type ProgressFunc = convert.ProgressFunc

// SourceFile represents a source data file (GeoJSON, GeoParquet, etc.).
type SourceFile struct {
	Name     string `json:"name" doc:"File name" example:"buildings.geojson"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"File type: GeoJSON, GeoParquet, GeoPackage, ..." example:"GeoJSON"`
}

// StyleInfo summarises an exported style folder.
type StyleInfo struct {
	Name    string `json:"name" doc:"Style name" example:"city"`
	Title   string `json:"title" doc:"Style document name" example:"City map"`
	Layers  int    `json:"layers" doc:"Number of style layers"`
	Sprites bool   `json:"sprites" doc:"Whether the style declares a sprite sheet"`
	Size    string `json:"size" doc:"Human-readable size of the style document" example:"4.1 KB"`
}

// ExportOptions selects what to export and where.
type ExportOptions struct {
	Name      string   `json:"name" required:"true" pattern:"^[a-z0-9_]+$" doc:"Output style name" example:"city"`
	Title     string   `json:"title,omitempty" doc:"Style document name; defaults to the project name"`
	Layers    []string `json:"layers,omitempty" doc:"Layer IDs to export; all layers when empty"`
	Precision int      `json:"precision,omitempty" minimum:"0" maximum:"15" doc:"Coordinate decimals kept in data files"`
}

// ExportResult describes a finished export.
type ExportResult struct {
	Run         string   `json:"run" doc:"Conversion run ID"`
	Name        string   `json:"name" doc:"Style name"`
	StyleLayers int      `json:"styleLayers" doc:"Number of style layers written"`
	DataFiles   []string `json:"dataFiles" doc:"Data files written, relative to the style folder"`
	Sprites     []string `json:"sprites,omitempty" doc:"Sprite names packed into the sheet"`
}

// ImportOptions selects the style to read back into the project.
type ImportOptions struct {
	Name    string `json:"name" required:"true" pattern:"^[a-z0-9_]+$" doc:"Style name" example:"city"`
	Replace bool   `json:"replace,omitempty" doc:"Replace the project's layers instead of adding new ones"`
}

// ImportResult lists the layers an import added or replaced.
type ImportResult struct {
	Run    string   `json:"run" doc:"Conversion run ID"`
	Layers []string `json:"layers" doc:"Imported layer IDs"`
}
