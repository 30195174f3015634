// Package render turns composed slides into HTML pages and rasterises them
// to fixed-size PNGs through the shared headless browser.
package render

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-rod/rod/lib/proto"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/deckgen/browser"
	"github.com/hazyhaar/deckgen/slides"
)

// Slide canvas, 16:9.
const (
	CanvasWidth  = 1280
	CanvasHeight = 720
)

//go:embed templates/*.html
var templatesFS embed.FS

// Config configures a Renderer.
type Config struct {
	// Browser rasterises rendered HTML to PNG. Nil = HTML output only.
	Browser *browser.Manager

	// OutputDir receives one .html (and one .png when rasterising) per
	// slide.
	OutputDir string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Renderer renders deck slides. Safe for reuse across decks.
type Renderer struct {
	cfg    Config
	tmpl   *template.Template
	policy *bluemonday.Policy
}

// New parses the embedded slide templates.
func New(cfg Config) (*Renderer, error) {
	cfg.defaults()

	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	return &Renderer{
		cfg:    cfg,
		tmpl:   tmpl,
		policy: bluemonday.StrictPolicy(),
	}, nil
}

// Result is the rendered artefacts of one slide. PNGPath is empty when the
// renderer has no browser.
type Result struct {
	SlideNumber int
	HTMLPath    string
	PNGPath     string
}

// Render writes every slide of the deck. Template data is sanitised before
// it reaches HTML; module free text may carry markup fragments from the
// proposal.
func (r *Renderer) Render(ctx context.Context, d *slides.Deck) ([]Result, error) {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("render: create output dir: %w", err)
	}

	results := make([]Result, 0, len(d.Slides))
	for _, s := range d.Slides {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}

		res, err := r.renderSlide(ctx, d, s)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Renderer) renderSlide(ctx context.Context, d *slides.Deck, s slides.Slide) (Result, error) {
	name := s.Type + ".html"
	if r.tmpl.Lookup(name) == nil {
		return Result{}, fmt.Errorf("render: no template for slide type %q", s.Type)
	}

	htmlPath := filepath.Join(r.cfg.OutputDir, fmt.Sprintf("slide-%02d.html", s.Number))
	f, err := os.Create(htmlPath)
	if err != nil {
		return Result{}, fmt.Errorf("render: create %s: %w", htmlPath, err)
	}
	execErr := r.tmpl.ExecuteTemplate(f, name, r.viewFor(d, s))
	if closeErr := f.Close(); execErr == nil {
		execErr = closeErr
	}
	if execErr != nil {
		return Result{}, fmt.Errorf("render: slide %d: %w", s.Number, execErr)
	}

	res := Result{SlideNumber: s.Number, HTMLPath: htmlPath}
	if r.cfg.Browser == nil {
		return res, nil
	}

	pngPath := filepath.Join(r.cfg.OutputDir, fmt.Sprintf("slide-%02d.png", s.Number))
	if err := r.rasterize(ctx, htmlPath, pngPath); err != nil {
		return Result{}, fmt.Errorf("render: slide %d: %w", s.Number, err)
	}
	res.PNGPath = pngPath
	return res, nil
}

func (r *Renderer) rasterize(ctx context.Context, htmlPath, pngPath string) error {
	page, err := r.cfg.Browser.Page(ctx)
	if err != nil {
		return err
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             CanvasWidth,
		Height:            CanvasHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}

	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return err
	}
	if err := r.cfg.Browser.Navigate(ctx, page, "file://"+abs); err != nil {
		return err
	}

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	if err := os.WriteFile(pngPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", pngPath, err)
	}

	r.cfg.Logger.Debug("slide rasterised", "png", pngPath)
	return nil
}
