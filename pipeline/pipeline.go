// Package pipeline wires the full proposal-to-deck run: parse the template,
// compose slides (fetching module media), render and rasterise them, package
// the pptx with reference-slide splicing, and write a run manifest. It also
// carries the HTTP and MCP front-ends over the same run path.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/deckgen/browser"
	"github.com/hazyhaar/deckgen/deck"
	"github.com/hazyhaar/deckgen/fetchlog"
	"github.com/hazyhaar/deckgen/idgen"
	"github.com/hazyhaar/deckgen/mediafetch"
	"github.com/hazyhaar/deckgen/proposal"
	"github.com/hazyhaar/deckgen/render"
	"github.com/hazyhaar/deckgen/slides"
)

// Pipeline runs proposal-to-deck generations. Safe for sequential reuse;
// serve mode runs one generation per request.
type Pipeline struct {
	cfg    *Config
	logger *slog.Logger
	newID  idgen.Generator
	audit  *fetchlog.Store
}

// New creates a Pipeline. The fetch audit log is opened here when
// configured; call Close when done.
func New(cfg *Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	// Run IDs name the output directories: prefixed and timestamped so a
	// directory listing sorts chronologically.
	p := &Pipeline{
		cfg:    cfg,
		logger: logger,
		newID:  idgen.Prefixed("run_", idgen.Timestamped(idgen.NanoID(6))),
	}
	if cfg.FetchLogPath != "" {
		store, err := fetchlog.Open(cfg.FetchLogPath)
		if err != nil {
			return nil, err
		}
		p.audit = store
	}
	return p, nil
}

// Close releases the audit store.
func (p *Pipeline) Close() error {
	if p.audit != nil {
		return p.audit.Close()
	}
	return nil
}

// RunResult is the manifest of one generation, written as JSON next to the
// outputs.
type RunResult struct {
	RunID        string    `json:"run_id"`
	TemplatePath string    `json:"template_path"`
	ProjectName  string    `json:"project_name"`
	ClientName   string    `json:"client_name"`
	SlideCount   int       `json:"slide_count"`
	DeckJSONPath string    `json:"deck_json_path"`
	SummaryPath  string    `json:"summary_path"`
	PptxPath     string    `json:"pptx_path,omitempty"`
	PDFPath      string    `json:"pdf_path,omitempty"`
	MediaFetched int       `json:"media_fetched"`
	MediaFailed  int       `json:"media_failed"`
	MediaSkipped int       `json:"media_skipped"`
	StartedAt    time.Time `json:"started_at"`
	DurationMs   int64     `json:"duration_ms"`
}

// Run generates a deck from templatePath (falling back to the configured
// template). Media failures degrade to manual markers; only structural
// faults abort the run.
func (p *Pipeline) Run(ctx context.Context, templatePath string) (*RunResult, error) {
	started := time.Now()
	if templatePath == "" {
		templatePath = p.cfg.TemplatePath
	}
	if templatePath == "" {
		return nil, fmt.Errorf("pipeline: no template: set template_path or pass one per run")
	}

	runID := p.newID()
	runDir := filepath.Join(p.cfg.OutputDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: create run dir: %w", err)
	}
	log := p.logger.With("run_id", runID)
	log.Info("run started", "template", templatePath)

	prop, err := proposal.Parse(templatePath)
	if err != nil {
		return nil, err
	}

	var mgr *browser.Manager
	if !p.cfg.Browser.Disabled {
		mgr = browser.NewManager(browser.Config{
			RemoteURL:       p.cfg.Browser.RemoteURL,
			NavigateTimeout: p.cfg.navigateTimeout(),
			Logger:          log,
		})
		if err := mgr.Start(ctx); err != nil {
			return nil, err
		}
		defer mgr.Close()
	}

	fetcher := &auditedFetcher{
		inner: mediafetch.New(mediafetch.Config{
			HTTPTimeout:  p.cfg.httpTimeout(),
			DownloadWait: p.cfg.downloadWait(),
			Browser:      mgr,
			Logger:       log,
		}),
		store:  p.audit,
		runID:  runID,
		logger: log,
	}

	diagramCode, err := p.diagramCode()
	if err != nil {
		return nil, err
	}

	composer := slides.New(slides.Config{
		Fetcher:     fetcher,
		MediaDir:    filepath.Join(runDir, "media"),
		DiagramCode: diagramCode,
		Provider:    p.cfg.Provider,
		Logger:      log,
	})
	d, err := composer.Compose(ctx, prop)
	if err != nil {
		return nil, err
	}

	res := &RunResult{
		RunID:        runID,
		TemplatePath: templatePath,
		ProjectName:  d.ProjectName,
		ClientName:   d.ClientName,
		SlideCount:   d.TotalSlides,
		DeckJSONPath: filepath.Join(runDir, "deck.json"),
		SummaryPath:  filepath.Join(runDir, "summary.md"),
		MediaFetched: fetcher.fetched,
		MediaFailed:  fetcher.failed,
		MediaSkipped: fetcher.skipped,
		StartedAt:    started.UTC(),
	}
	if err := d.WriteJSON(res.DeckJSONPath); err != nil {
		return nil, err
	}
	if err := d.WriteSummary(res.SummaryPath); err != nil {
		return nil, err
	}

	renderer, err := render.New(render.Config{
		Browser:   mgr,
		OutputDir: filepath.Join(runDir, "slides"),
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	rendered, err := renderer.Render(ctx, d)
	if err != nil {
		return nil, err
	}

	if mgr == nil {
		log.Warn("browser disabled, stopping after html render")
	} else {
		images := slideImages(d, rendered)
		builder := deck.New(deck.Config{
			ArchitectureDeck: p.cfg.ArchitectureDeck,
			LibraryDeck:      p.cfg.LibraryDeck,
			DeploymentMethod: deploymentMethod(prop),
			Logger:           log,
		})
		res.PptxPath = filepath.Join(runDir, "deck.pptx")
		if err := builder.Write(res.PptxPath, d, images); err != nil {
			return nil, err
		}
		if p.cfg.PDF {
			paths := make([]string, 0, len(images))
			for _, img := range images {
				paths = append(paths, img.PNGPath)
			}
			res.PDFPath = filepath.Join(runDir, "deck.pdf")
			if err := builder.ExportPDF(res.PDFPath, paths); err != nil {
				return nil, err
			}
		}
	}

	res.DurationMs = time.Since(started).Milliseconds()
	if err := writeManifest(filepath.Join(runDir, "manifest.json"), res); err != nil {
		return nil, err
	}
	log.Info("run finished", "slides", res.SlideCount, "pptx", res.PptxPath,
		"duration_ms", res.DurationMs)
	return res, nil
}

func (p *Pipeline) diagramCode() (string, error) {
	if p.cfg.DiagramPath == "" {
		return "", nil
	}
	data, err := os.ReadFile(p.cfg.DiagramPath)
	if err != nil {
		return "", fmt.Errorf("pipeline: read diagram %s: %w", p.cfg.DiagramPath, err)
	}
	return string(data), nil
}

// deploymentMethod hunts the proposal for a deployment field. Both the
// requirement statement and the system requirements section are checked;
// templates put it in either.
func deploymentMethod(p *proposal.Proposal) string {
	for _, section := range []string{proposal.SectionRequirement, proposal.SectionRequirements} {
		for _, kv := range proposal.KeyValues(p.Section(section)) {
			if strings.Contains(strings.ToLower(kv.Key), "deployment") {
				return kv.Value
			}
		}
	}
	return ""
}

// slideImages pairs rendered PNGs with the video URLs of their slides.
func slideImages(d *slides.Deck, rendered []render.Result) []deck.SlideImage {
	videos := make(map[int]string)
	for _, s := range d.Slides {
		if s.Media != nil && s.Media.Kind == slides.MediaVideo {
			videos[s.Number] = s.Media.OriginalURL
		}
	}
	images := make([]deck.SlideImage, 0, len(rendered))
	for _, r := range rendered {
		images = append(images, deck.SlideImage{
			Number:   r.SlideNumber,
			PNGPath:  r.PNGPath,
			VideoURL: videos[r.SlideNumber],
		})
	}
	return images
}

func writeManifest(path string, res *RunResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("pipeline: write manifest: %w", err)
	}
	return nil
}

// auditedFetcher wraps the media fetcher with outcome counting and the
// SQLite audit trail. The trail records attempts; it never short-circuits
// them.
type auditedFetcher struct {
	inner  *mediafetch.Fetcher
	store  *fetchlog.Store
	runID  string
	logger *slog.Logger

	fetched int
	failed  int
	skipped int
}

func (a *auditedFetcher) Fetch(ctx context.Context, ref mediafetch.Reference, outputPath string) mediafetch.Outcome {
	started := time.Now()
	out := a.inner.Fetch(ctx, ref, outputPath)

	switch out.Status {
	case mediafetch.StatusFetched:
		a.fetched++
	case mediafetch.StatusFailed:
		a.failed++
	default:
		a.skipped++
	}

	if a.store != nil {
		entry := &fetchlog.Entry{
			ID:         idgen.New(),
			RunID:      a.runID,
			URL:        ref.URL,
			Kind:       string(ref.Kind),
			Status:     string(out.Status),
			LocalPath:  out.LocalPath,
			DurationMs: time.Since(started).Milliseconds(),
			FetchedAt:  time.Now(),
		}
		if out.Status == mediafetch.StatusFailed {
			entry.ErrorMessage = "all strategies exhausted"
		}
		if err := a.store.Insert(ctx, entry); err != nil {
			a.logger.Warn("fetch audit write failed", "error", err)
		}
	}
	return out
}
