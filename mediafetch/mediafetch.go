// Package mediafetch acquires one remote media file (image or video) per
// call and validates that the bytes really are of the requested kind,
// despite a share service that may serve interstitial warning pages,
// require confirmation tokens, or silently hand back the wrong content.
//
// Acquisition is a fixed strategy ladder, tried strictly in order and
// stopping at the first attempt that yields a file passing signature
// validation. Every strategy failure is non-fatal: it is logged and the
// ladder advances. Only exhaustion surfaces to the caller, as a value.
package mediafetch

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hazyhaar/deckgen/browser"
)

// Kind selects the validation rules and download URL templates.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Reference identifies a remote file to acquire. URL is untrusted text:
// it may be empty, malformed, or point anywhere.
type Reference struct {
	URL  string `json:"url"`
	Kind Kind   `json:"kind"`
}

// Status classifies a fetch outcome.
type Status string

const (
	// StatusFetched means LocalPath holds a signature-validated file.
	StatusFetched Status = "fetched"
	// StatusSkipped means the reference URL was empty. Not an error:
	// manual insertion is expected downstream.
	StatusSkipped Status = "skipped"
	// StatusFailed means every applicable strategy was exhausted.
	StatusFailed Status = "failed"
)

// Outcome is the only thing Fetch returns. OriginalURL always carries the
// reference forward so callers can render it as a manual-action link.
type Outcome struct {
	Status      Status `json:"status"`
	LocalPath   string `json:"local_path,omitempty"`
	OriginalURL string `json:"original_url"`
}

// Config configures a Fetcher.
type Config struct {
	// HTTPTimeout bounds each network request attempt. Default: 30s.
	HTTPTimeout time.Duration

	// DownloadWait bounds the primary wait for a browser download event
	// after navigation. Default: 60s.
	DownloadWait time.Duration

	// RetryWait bounds each re-armed wait after clicking a
	// confirmation-page control. Default: 10s.
	RetryWait time.Duration

	// SettleDelay is the fixed pause after navigation to let the share
	// service finish its redirect dance. Default: 2s.
	SettleDelay time.Duration

	// MinSize is the minimum byte count for a download to be considered
	// a real payload rather than an error stub. Default: 1000.
	MinSize int64

	// MaxHTMLBytes caps how much of an interstitial page is read when
	// hunting for a confirmation token. Default: 2MB.
	MaxHTMLBytes int64

	// UserAgent sent with direct HTTP requests.
	UserAgent string

	// Client overrides the HTTP client (tests). When nil a client with
	// redirect-capped transport and HTTPTimeout is built.
	Client *http.Client

	// Browser supplies the shared headless Chrome for the fallback
	// strategy. Nil disables the browser leg; the ladder then ends after
	// the HTTP strategies.
	Browser *browser.Manager

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.DownloadWait <= 0 {
		c.DownloadWait = 60 * time.Second
	}
	if c.RetryWait <= 0 {
		c.RetryWait = 10 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.MinSize <= 0 {
		c.MinSize = 1000
	}
	if c.MaxHTMLBytes <= 0 {
		c.MaxHTMLBytes = 2 << 20
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) deckgen/1.0"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Fetcher runs the acquisition ladder. Safe for sequential reuse; each call
// touches only its own output path and opens at most one browser page.
type Fetcher struct {
	cfg        Config
	client     *http.Client
	exportBase string
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	client := cfg.Client
	if client == nil {
		client = newHTTPClient(cfg.HTTPTimeout)
	}
	return &Fetcher{cfg: cfg, client: client, exportBase: driveExportBase}
}

// strategy is one rung of the ladder. run either leaves a candidate file at
// the output path and returns nil, or returns an error meaning "this
// strategy did not succeed", never a fault that should stop the ladder.
type strategy struct {
	name string
	run  func(ctx context.Context, outputPath string) error
}

// Fetch acquires the referenced file into outputPath. The parent directory
// of outputPath must exist and be writable; the file itself is created or
// overwritten. An empty URL short-circuits to StatusSkipped with no network
// activity. Exhaustion returns StatusFailed with no file left behind.
func (f *Fetcher) Fetch(ctx context.Context, ref Reference, outputPath string) Outcome {
	if strings.TrimSpace(ref.URL) == "" {
		return Outcome{Status: StatusSkipped, OriginalURL: ref.URL}
	}

	log := f.cfg.Logger.With("url", ref.URL, "kind", ref.Kind)

	var ladder []strategy
	if id, ok := ExtractFileID(ref.URL); ok {
		ladder = f.driveLadder(id, ref.Kind)
		log = log.With("file_id", id)
	} else {
		// Not a recognised share link: plain direct fetch, then the
		// browser leg without confirmation-page handling.
		ladder = f.genericLadder(ref.URL, ref.Kind)
	}

	for _, s := range ladder {
		err := s.run(ctx, outputPath)
		if err == nil {
			err = validateFile(outputPath, ref.Kind, f.cfg.MinSize)
			if err == nil {
				log.Info("mediafetch: fetched", "strategy", s.name, "path", outputPath)
				return Outcome{Status: StatusFetched, LocalPath: outputPath, OriginalURL: ref.URL}
			}
		}
		// Clean up any partial write before the next rung.
		os.Remove(outputPath)
		log.Debug("mediafetch: strategy failed", "strategy", s.name, "error", err)

		if ctx.Err() != nil {
			break
		}
	}

	os.Remove(outputPath)
	log.Warn("mediafetch: all strategies exhausted")
	return Outcome{Status: StatusFailed, OriginalURL: ref.URL}
}

// driveLadder builds the share-service ladder: canonical export download,
// confirmation-token retry, blind confirm, the alternate view-export
// template, then the browser fallback.
// The interstitial markup seen by the direct download is threaded to the
// token retry through shared state.
func (f *Fetcher) driveLadder(id string, kind Kind) []strategy {
	st := &driveState{}

	ladder := []strategy{
		{name: "direct-download", run: func(ctx context.Context, out string) error {
			return f.directDrive(ctx, id, st, out)
		}},
		{name: "confirm-token", run: func(ctx context.Context, out string) error {
			return f.tokenRetry(ctx, id, st, out)
		}},
		{name: "blind-confirm", run: func(ctx context.Context, out string) error {
			return f.downloadBinary(ctx, withConfirm(f.downloadURL(id), blindConfirmToken), out)
		}},
		// Some files resolve only under the alternate view template,
		// which redirects straight to the content for small media.
		{name: "view-export", run: func(ctx context.Context, out string) error {
			return f.downloadBinary(ctx, f.viewDownloadURL(id), out)
		}},
	}

	if f.cfg.Browser != nil {
		ladder = append(ladder, strategy{name: "browser-fallback", run: func(ctx context.Context, out string) error {
			return f.browserFetch(ctx, filePageURL(id), kind, out, true)
		}})
	}
	return ladder
}

// genericLadder handles URLs with no recognised identifier: direct fetch
// with redirect following, then the browser leg without the service-specific
// confirmation handling.
func (f *Fetcher) genericLadder(rawURL string, kind Kind) []strategy {
	ladder := []strategy{
		{name: "direct-download", run: func(ctx context.Context, out string) error {
			return f.downloadBinary(ctx, rawURL, out)
		}},
	}
	if f.cfg.Browser != nil {
		ladder = append(ladder, strategy{name: "browser-fallback", run: func(ctx context.Context, out string) error {
			return f.browserFetch(ctx, rawURL, kind, out, false)
		}})
	}
	return ladder
}
