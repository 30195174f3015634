package slides

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hazyhaar/deckgen/mediafetch"
	"github.com/hazyhaar/deckgen/proposal"
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// resolveMedia fetches at most one reference per module: a non-empty video
// URL wins outright and the image URL is consulted only when no video URL
// exists. Anything short of a fetched file degrades to the manual-insertion
// marker carrying the original URL; media never fails a run.
func (c *Composer) resolveMedia(ctx context.Context, mod proposal.Module) *Media {
	url, kind, ext := mod.ImageURL, mediafetch.KindImage, ".png"
	if mod.VideoURL != "" {
		url, kind, ext = mod.VideoURL, mediafetch.KindVideo, ".mp4"
	}
	if url == "" {
		return &Media{Kind: MediaNone}
	}
	if c.cfg.Fetcher == nil {
		return &Media{Kind: MediaNone, OriginalURL: url}
	}

	outputPath := filepath.Join(c.cfg.MediaDir, slug(mod.Name)+ext)
	out := c.cfg.Fetcher.Fetch(ctx, mediafetch.Reference{URL: url, Kind: kind}, outputPath)

	if out.Status != mediafetch.StatusFetched {
		c.cfg.Logger.Warn("module media unavailable, marking for manual insertion",
			"module", mod.Name, "url", url, "status", string(out.Status))
		return &Media{Kind: MediaNone, OriginalURL: url}
	}

	media := &Media{Path: out.LocalPath, OriginalURL: url}
	if kind == mediafetch.KindVideo {
		media.Kind = MediaVideo
	} else {
		media.Kind = MediaImage
	}
	return media
}

// slug turns a module name into a safe media file stem.
func slug(name string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "module"
	}
	return s
}
