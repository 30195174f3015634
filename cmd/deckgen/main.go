// Command deckgen turns a proposal template into a slide deck. One-shot
// generation by default; -serve exposes the HTTP API, -mcp stdio exposes the
// MCP tools.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/deckgen/pipeline"
)

func main() {
	if err := run(); err != nil {
		slog.Error("deckgen", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   = flag.String("config", "", "YAML config file")
		templatePath = flag.String("template", "", "proposal template (md or html); overrides the config")
		outputDir    = flag.String("out", "", "output directory; overrides the config")
		pdf          = flag.Bool("pdf", false, "also export a PDF rendition")
		noBrowser    = flag.Bool("no-browser", false, "skip headless Chrome (HTML output only)")
		serve        = flag.Bool("serve", false, "run the HTTP server")
		mcpTransport = flag.String("mcp", "", "run the MCP server over the given transport (stdio)")
		logLevel     = flag.String("log-level", "info", "debug, info, warn or error")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))
	slog.SetDefault(logger)

	cfg := pipeline.DefaultConfig()
	if *configPath != "" {
		loaded, err := pipeline.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *templatePath != "" {
		cfg.TemplatePath = *templatePath
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *pdf {
		cfg.PDF = true
	}
	if *noBrowser {
		cfg.Browser.Disabled = true
	}

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch {
	case *serve:
		return p.Serve()
	case *mcpTransport != "":
		if *mcpTransport != "stdio" {
			return fmt.Errorf("unsupported mcp transport %q (only stdio)", *mcpTransport)
		}
		return p.ServeMCP(ctx)
	default:
		res, err := p.Run(ctx, cfg.TemplatePath)
		if err != nil {
			return err
		}
		out := res.PptxPath
		if out == "" {
			out = res.SummaryPath
		}
		fmt.Println(out)
		return nil
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
