package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-style/internal/convert"
	"github.com/joeblew999/plat-style/internal/project"
	"github.com/joeblew999/plat-style/internal/server"
	"github.com/joeblew999/plat-style/internal/sprite"
)

// Options defines all CLI flags and env vars for the style server.
// Flags: --host, --port, --data-dir, --web-dir, --precision, --verbose
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ...
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir   string `doc:"Directory for project, sources and exported styles" default:".data"`
	WebDir    string `doc:"Path to web/ directory" default:""`
	Precision int    `doc:"Coordinate decimals kept in exported data files" default:"6"`
	Verbose   bool   `doc:"Enable debug logging" short:"v" default:"false"`
}

func newLogger(opts *Options) *log.Logger {
	level := log.InfoLevel
	if opts.Verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "glstyle",
	})
}

func newServer(opts *Options, logger *log.Logger) *server.Server {
	srv, err := server.New(server.Config{
		Host:      opts.Host,
		Port:      fmt.Sprintf("%d", opts.Port),
		DataDir:   opts.DataDir,
		WebDir:    opts.WebDir,
		Precision: opts.Precision,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("creating server", "err", err)
	}
	return srv
}

// newConverter builds a converter resolving relative sources against dir.
func newConverter(opts *Options, logger *log.Logger, dir, name string) (*convert.Converter, func()) {
	reader, _ := server.FeatureReader(opts.DataDir, logger)
	icons, err := sprite.NewRenderer(sprite.DefaultCacheCost)
	if err != nil {
		logger.Fatal("creating icon renderer", "err", err)
	}
	c := convert.New(convert.Options{
		Name:      name,
		Precision: opts.Precision,
		SourceDir: dir,
		Features:  reader,
		Icons:     icons,
		Logger:    logger,
		Progress: func(progress int, status string) {
			logger.Debug(status, "progress", progress)
		},
	})
	return c, icons.Close
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logger := newLogger(opts)
		srv := newServer(opts, logger)

		hooks.OnStart(func() {
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-style API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Styles:  %s/styles/<name>/mapbox.json\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				logger.Fatal("server error", "err", err)
			}
		})
		hooks.OnStop(func() {
			srv.Close()
		})
	})

	cli.Root().Use = "glstyle"
	cli.Root().Short = "Convert map projects to Mapbox GL styles and back"
	cli.Root().Version = "0.1.0"

	// export subcommand: project file -> style folder
	exportCmd := &cobra.Command{
		Use:   "export <project.yaml> <folder>",
		Short: "Write a Mapbox GL style, sprites and GeoJSON data for a project",
		Args:  cobra.ExactArgs(2),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := newLogger(opts)
			p, err := project.Load(args[0])
			if err != nil {
				logger.Fatal("loading project", "err", err)
			}
			name, _ := cmd.Flags().GetString("name")
			c, closeIcons := newConverter(opts, logger, filepath.Dir(args[0]), name)
			defer closeIcons()

			ctx := context.Background()
			var res *convert.Result
			if id, _ := cmd.Flags().GetString("layer"); id != "" {
				l, ok := p.Layer(id)
				if !ok {
					logger.Fatal("layer not found", "layer", id)
				}
				res, err = c.ExportLayer(ctx, l, args[1])
			} else {
				res, err = c.Export(ctx, p, args[1])
			}
			if err != nil {
				logger.Fatal("export failed", "err", err)
			}
			fmt.Println(res.StylePath)
		}),
	}
	exportCmd.Flags().StringP("name", "n", "", "Style document name (defaults to the project name)")
	exportCmd.Flags().StringP("layer", "l", "", "Export only the layer with this ID")
	cli.Root().AddCommand(exportCmd)

	// import subcommand: style document -> project file
	importCmd := &cobra.Command{
		Use:   "import <mapbox.json> <project.yaml>",
		Short: "Rebuild a project file from a Mapbox GL style folder",
		Args:  cobra.ExactArgs(2),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := newLogger(opts)
			stylePath, err := filepath.Abs(args[0])
			if err != nil {
				logger.Fatal("resolving style path", "err", err)
			}
			c, closeIcons := newConverter(opts, logger, "", "")
			defer closeIcons()

			p, err := c.Load(context.Background(), stylePath)
			if err != nil {
				logger.Fatal("import failed", "err", err)
			}
			if err := p.Save(args[1]); err != nil {
				logger.Fatal("writing project", "err", err)
			}
			logger.Info("project written", "path", args[1], "layers", len(p.Layers))
		}),
	}
	cli.Root().AddCommand(importCmd)

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := newLogger(opts)
			srv := newServer(opts, logger)
			defer srv.Close()
			spec := srv.API().OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				logger.Fatal("marshaling spec", "err", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// gen-client subcommand: generate Go client SDK via humaclient
	genClientCmd := &cobra.Command{
		Use:   "gen-client",
		Short: "Generate Go client SDK from the API",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := newLogger(opts)
			srv := newServer(opts, logger)
			defer srv.Close()
			outDir, _ := cmd.Flags().GetString("output")
			if err := srv.GenerateClient(outDir); err != nil {
				logger.Fatal("generating client", "err", err)
			}
			fmt.Printf("Client SDK generated in %s/\n", outDir)
		}),
	}
	genClientCmd.Flags().StringP("output", "o", "pkg/styleclient", "Output directory for generated client")
	cli.Root().AddCommand(genClientCmd)

	cli.Run()
}
