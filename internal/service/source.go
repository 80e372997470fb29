package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sourceTypes maps supported source extensions to their display type.
var sourceTypes = map[string]string{
	".geojson":    "GeoJSON",
	".json":       "GeoJSON",
	".csv":        "CSV",
	".gpkg":       "GeoPackage",
	".shp":        "Shapefile",
	".parquet":    "GeoParquet",
	".geoparquet": "GeoParquet",
}

// SourceService manages source data files.
type SourceService struct {
	sourcesDir string
}

// NewSourceService creates a new source service.
func NewSourceService(dataDir string) *SourceService {
	return &SourceService{
		sourcesDir: filepath.Join(dataDir, "sources"),
	}
}

// List returns all available source files.
func (s *SourceService) List() ([]SourceFile, error) {
	entries, err := os.ReadDir(s.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SourceFile{}, nil
		}
		return nil, err
	}

	files := []SourceFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		fileType, ok := sourceTypes[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, SourceFile{
			Name:     entry.Name(),
			Size:     formatSize(info.Size()),
			FileType: fileType,
		})
	}

	return files, nil
}

// Validate checks that a layer source names an existing file of a supported
// type inside the sources directory.
func (s *SourceService) Validate(filename string) error {
	if strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return fmt.Errorf("invalid filename")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := sourceTypes[ext]; !ok {
		return fmt.Errorf("unsupported file type: %s", ext)
	}

	if _, err := os.Stat(filepath.Join(s.sourcesDir, filename)); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", filename)
	}
	return nil
}

// SourcesDir returns the path to the sources directory.
func (s *SourceService) SourcesDir() string {
	return s.sourcesDir
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
