package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/joeblew999/plat-style/internal/convert"
	"github.com/joeblew999/plat-style/internal/features"
	"github.com/joeblew999/plat-style/internal/project"
	"github.com/joeblew999/plat-style/internal/style"
	"github.com/joeblew999/plat-style/internal/symbology"
)

// ConvertConfig wires a ConvertService.
type ConvertConfig struct {
	DataDir   string
	Precision int
	Layers    *LayerService
	Features  features.Reader
	Icons     symbology.IconRenderer
	Logger    *log.Logger
	Bus       *EventBus
}

// ConvertService exports the project to style folders under
// <dataDir>/styles and imports them back. Each call is an independent
// conversion run.
type ConvertService struct {
	stylesDir  string
	sourcesDir string
	precision  int
	layers     *LayerService
	features   features.Reader
	icons      symbology.IconRenderer
	log        *log.Logger
	bus        *EventBus
}

// NewConvertService creates a new convert service.
func NewConvertService(cfg ConvertConfig) *ConvertService {
	if cfg.Bus == nil {
		cfg.Bus = DefaultBus
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr)
	}
	return &ConvertService{
		stylesDir:  filepath.Join(cfg.DataDir, "styles"),
		sourcesDir: filepath.Join(cfg.DataDir, "sources"),
		precision:  cfg.Precision,
		layers:     cfg.Layers,
		features:   cfg.Features,
		icons:      cfg.Icons,
		log:        cfg.Logger,
		bus:        cfg.Bus,
	}
}

func (s *ConvertService) converter(run, title string, onProgress ProgressFunc, precision int) *convert.Converter {
	if precision <= 0 {
		precision = s.precision
	}
	return convert.New(convert.Options{
		Name:      title,
		Precision: precision,
		SourceDir: s.sourcesDir,
		Features:  s.features,
		Icons:     s.icons,
		Logger:    s.log.With("run", run),
		Progress:  onProgress,
	})
}

// Export writes the selected project layers to <stylesDir>/<name>.
func (s *ConvertService) Export(ctx context.Context, opts ExportOptions, onProgress ProgressFunc) (*ExportResult, error) {
	if err := checkName(opts.Name); err != nil {
		return nil, err
	}
	p := s.layers.Project()
	if len(opts.Layers) > 0 {
		selected := make([]project.Layer, 0, len(opts.Layers))
		for _, id := range opts.Layers {
			l, ok := p.Layer(id)
			if !ok {
				return nil, fmt.Errorf("layer %q not found", id)
			}
			selected = append(selected, l)
		}
		p.Layers = selected
	}
	if len(p.Layers) == 0 {
		return nil, fmt.Errorf("no layers to export")
	}

	run := uuid.NewString()
	folder := s.StyleDir(opts.Name)
	res, err := s.converter(run, opts.Title, onProgress, opts.Precision).Export(ctx, p, folder)
	if err != nil {
		return nil, err
	}

	out := &ExportResult{
		Run:         run,
		Name:        opts.Name,
		StyleLayers: len(res.Document.Layers),
		DataFiles:   make([]string, 0, len(res.DataFiles)),
		Sprites:     res.Sprites,
	}
	for _, f := range res.DataFiles {
		rel, err := filepath.Rel(folder, f)
		if err != nil {
			rel = f
		}
		out.DataFiles = append(out.DataFiles, filepath.ToSlash(rel))
	}
	s.bus.Publish(Event{Resource: ResourceStyles, Action: ActionExported, ID: opts.Name, Run: run})
	return out, nil
}

// Import loads <stylesDir>/<name> and merges its layers into the project.
func (s *ConvertService) Import(ctx context.Context, opts ImportOptions, onProgress ProgressFunc) (*ImportResult, error) {
	if err := checkName(opts.Name); err != nil {
		return nil, err
	}
	path, err := filepath.Abs(filepath.Join(s.StyleDir(opts.Name), convert.StyleFile))
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("style %q not found", opts.Name)
	}

	run := uuid.NewString()
	p, err := s.converter(run, "", onProgress, 0).Load(ctx, path)
	if err != nil {
		return nil, err
	}
	ids, err := s.layers.Merge(p.Layers, opts.Replace)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	s.bus.Publish(Event{Resource: ResourceStyles, Action: ActionImported, ID: opts.Name, Run: run})
	return &ImportResult{Run: run, Layers: ids}, nil
}

// Style returns the style document of an exported style.
func (s *ConvertService) Style(name string) (*style.Document, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return style.Read(filepath.Join(s.StyleDir(name), convert.StyleFile))
}

// List returns the exported styles sorted by name.
func (s *ConvertService) List() ([]StyleInfo, error) {
	entries, err := os.ReadDir(s.stylesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []StyleInfo{}, nil
		}
		return nil, err
	}

	styles := []StyleInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(s.stylesDir, entry.Name(), convert.StyleFile)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		doc, err := style.Read(path)
		if err != nil {
			s.log.Warn("unreadable style", "name", entry.Name(), "err", err)
			continue
		}
		styles = append(styles, StyleInfo{
			Name:    entry.Name(),
			Title:   doc.Name,
			Layers:  len(doc.Layers),
			Sprites: doc.Sprite != "",
			Size:    formatSize(info.Size()),
		})
	}
	sort.Slice(styles, func(i, j int) bool { return styles[i].Name < styles[j].Name })
	return styles, nil
}

// StyleDir returns the folder of a named style.
func (s *ConvertService) StyleDir(name string) string {
	return filepath.Join(s.stylesDir, name)
}

// StylesDir returns the folder holding all exported styles.
func (s *ConvertService) StylesDir() string {
	return s.stylesDir
}

func checkName(name string) error {
	if name == "" || project.SafeName(name) != name {
		return fmt.Errorf("invalid style name %q", name)
	}
	return nil
}
