// Package project holds the host-side description of a map: named vector
// layers with their feature source, renderer and label settings.
package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-style/internal/labeling"
	"github.com/joeblew999/plat-style/internal/symbology"
)

// DefaultName is the style document name used when a project has none.
const DefaultName = "QGIS project"

// Layer is one vector layer of a project.
type Layer struct {
	Name         string             `json:"name" yaml:"name" toml:"name" required:"true" minLength:"1" maxLength:"100" doc:"Display name" example:"Buildings"`
	Geometry     symbology.Geometry `json:"geometry" yaml:"geometry" toml:"geometry" enum:"point,line,polygon" doc:"Geometry type" example:"polygon"`
	Source       string             `json:"source" yaml:"source" toml:"source" doc:"Feature source file, relative to the data directory" example:"buildings.geojson"`
	Transparency int                `json:"transparency,omitempty" yaml:"transparency,omitempty" toml:"transparency,omitempty" minimum:"0" maximum:"255" doc:"Layer transparency (0-255)"`
	Renderer     symbology.Renderer `json:"renderer" yaml:"renderer" toml:"renderer" doc:"Feature renderer"`
	Labeling     *labeling.Settings `json:"labeling,omitempty" yaml:"labeling,omitempty" toml:"labeling,omitempty" doc:"Label settings"`
}

// ID is the safe name of the layer, used for sources, style layers and
// data files.
func (l Layer) ID() string { return SafeName(l.Name) }

// Project is an ordered list of layers.
type Project struct {
	Name   string  `json:"name" yaml:"name" toml:"name"`
	Layers []Layer `json:"layers" yaml:"layers" toml:"layers"`
}

// SafeName derives an identifier from a display name by keeping ASCII
// letters, digits and underscores and lower-casing the result. Distinct
// names may collide: "My Layer!" and "My-Layer" are both "mylayer".
func SafeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

// Validate rejects layers without a usable name and names that collide
// after SafeName.
func (p *Project) Validate() error {
	seen := make(map[string]string, len(p.Layers))
	for i, l := range p.Layers {
		id := l.ID()
		if id == "" {
			return fmt.Errorf("layer %d: name %q has no identifier characters", i, l.Name)
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("layers %q and %q share the identifier %q", prev, l.Name, id)
		}
		seen[id] = l.Name
		if _, err := symbology.ParseGeometry(string(l.Geometry)); err != nil {
			return fmt.Errorf("layer %q: %w", l.Name, err)
		}
		if l.Transparency < 0 || l.Transparency > 255 {
			return fmt.Errorf("layer %q: transparency %d out of range", l.Name, l.Transparency)
		}
	}
	return nil
}

// Layer returns the layer with the given id.
func (p *Project) Layer(id string) (Layer, bool) {
	for _, l := range p.Layers {
		if l.ID() == id {
			return l, true
		}
	}
	return Layer{}, false
}

// Load reads a project file. The format follows the extension: .yaml or
// .yml, .toml, or .json.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project: %w", err)
	}
	var p Project
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	case ".toml":
		err = toml.Unmarshal(data, &p)
	case ".json":
		err = json.Unmarshal(data, &p)
	default:
		return nil, fmt.Errorf("unsupported project format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing project %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save writes the project in the format implied by the extension.
func (p *Project) Save(path string) error {
	var buf bytes.Buffer
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encoding project: %w", err)
		}
		if err := enc.Close(); err != nil {
			return err
		}
	case ".toml":
		if err := toml.NewEncoder(&buf).Encode(p); err != nil {
			return fmt.Errorf("encoding project: %w", err)
		}
	case ".json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encoding project: %w", err)
		}
	default:
		return fmt.Errorf("unsupported project format %q", ext)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
