package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/danielgtaylor/humaclient"

	"github.com/joeblew999/plat-style/internal/api"
	"github.com/joeblew999/plat-style/internal/api/editor"
	"github.com/joeblew999/plat-style/internal/db"
	"github.com/joeblew999/plat-style/internal/features"
	"github.com/joeblew999/plat-style/internal/service"
	"github.com/joeblew999/plat-style/internal/sprite"
	"github.com/joeblew999/plat-style/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host      string
	Port      string
	DataDir   string
	WebDir    string // Path to web/ directory for static files and pages
	Precision int
	Logger    *log.Logger
}

// Server is the style HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	dbOK     bool
	reader   features.Reader
	icons    *sprite.Renderer
	services *api.Services
	bus      *service.EventBus
	renderer *templates.Renderer
	log      *log.Logger
}

// FeatureReader returns the reader used for layer sources: GeoJSON is read
// directly, every other format goes through DuckDB when it can be opened.
func FeatureReader(dataDir string, logger *log.Logger) (features.Reader, bool) {
	conn, err := db.Get(db.Config{
		DataDir: dataDir,
		DBName:  "style",
	})
	if err != nil {
		logger.Warn("duckdb unavailable, only GeoJSON sources can be read", "err", err)
		return features.NewRouter(nil), false
	}
	return features.NewRouter(db.NewFeatureReader(conn)), true
}

// New creates a new style server.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr)
	}
	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-style API", "1.0.0")
	humaConfig.Info.Description = "Converts map projects to Mapbox GL styles with sprites and GeoJSON data, and back."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	bus := service.NewEventBus()
	layers, err := service.NewLayerService(cfg.DataDir, bus)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}

	reader, dbOK := FeatureReader(cfg.DataDir, cfg.Logger)

	icons, err := sprite.NewRenderer(sprite.DefaultCacheCost)
	if err != nil {
		return nil, fmt.Errorf("creating icon renderer: %w", err)
	}

	services := &api.Services{
		Layer:  layers,
		Source: service.NewSourceService(cfg.DataDir),
		Convert: service.NewConvertService(service.ConvertConfig{
			DataDir:   cfg.DataDir,
			Precision: cfg.Precision,
			Layers:    layers,
			Features:  reader,
			Icons:     icons,
			Logger:    cfg.Logger,
			Bus:       bus,
		}),
	}

	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("loading fragment templates: %w", err)
	}
	if cfg.WebDir != "" {
		fragmentsDir := filepath.Join(cfg.WebDir, "templates", "fragments")
		if _, err := os.Stat(fragmentsDir); err == nil {
			if err := renderer.Reload(fragmentsDir); err != nil {
				return nil, err
			}
			cfg.Logger.Info("loaded fragment templates", "dir", fragmentsDir)
		}
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		dbOK:     dbOK,
		reader:   reader,
		icons:    icons,
		services: services,
		bus:      bus,
		renderer: renderer,
		log:      cfg.Logger,
	}

	s.routes()
	return s, nil
}

// API returns the Huma API, for OpenAPI generation.
func (s *Server) API() huma.API {
	return s.humaAPI
}

// GenerateClient writes a Go client SDK for the REST API into outDir. The
// package is named after the directory.
func (s *Server) GenerateClient(outDir string) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return err
	}
	return humaclient.GenerateWithOptions(s.humaAPI, humaclient.Options{
		PackageName:     filepath.Base(abs),
		ClientName:      "PlatStyleAPIClient",
		OutputDirectory: outDir,
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close closes server resources.
func (s *Server) Close() error {
	s.icons.Close()
	return db.Close()
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(s.config.DataDir, s.dbOK).RegisterRoutes(s.humaAPI)
	api.NewSummaryHandler(s.services.Source, s.reader).RegisterRoutes(s.humaAPI)

	// Register Editor SSE routes using Huma + Datastar SDK
	editor.NewLayerHandler(s.services.Layer, s.services.Source, s.renderer).RegisterRoutes(s.humaAPI)
	editor.NewStyleHandler(s.services.Convert, s.services.Layer, s.renderer).RegisterRoutes(s.humaAPI)
	editor.NewEventHandler(s.bus, s.services.Layer, s.services.Convert, s.renderer).RegisterRoutes(s.humaAPI)

	// Exported styles, their sprites and data files
	s.mux.Handle("/styles/", http.StripPrefix("/styles/", s.handleStyles(s.services.Convert.StylesDir())))

	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
		s.mux.HandleFunc("/viewer", s.handlePage("viewer.html"))
		s.mux.HandleFunc("/editor", s.handlePage("editor.html"))
	}

	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-style",
		"status":  "running",
	})
}

func (s *Server) handlePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(s.config.WebDir, "templates", name))
	}
}

// handleStyles serves style folders to map clients on other origins.
func (s *Server) handleStyles(stylesDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		http.FileServer(http.Dir(stylesDir)).ServeHTTP(w, r)
	})
}
