// Package deck assembles the final presentation: rendered slide images
// become full-bleed picture slides in a .pptx, pre-built reference slides
// are spliced in by deployment method, and the deck can be exported to PDF.
package deck

import (
	"log/slog"
)

// SlideImage is one rendered slide ready for packaging. VideoURL, when set,
// adds a hyperlinked caption to the slide: presentation viewers cannot be
// relied on to play embedded video, so the link is the durable artefact.
type SlideImage struct {
	Number   int
	PNGPath  string
	VideoURL string
}

// Config configures a Builder.
type Config struct {
	// ArchitectureDeck is the path to the reference deck holding one
	// architecture template slide per deployment method. Empty skips the
	// architecture splice.
	ArchitectureDeck string

	// LibraryDeck is the path to the standard company deck. Slides 2-10
	// go right after the title slide, 11-25 at the end. Empty, or a deck
	// with too few slides, skips the respective splice.
	LibraryDeck string

	// DeploymentMethod selects the architecture template slide. Free text
	// from the proposal; normalised internally. Unknown methods skip the
	// architecture splice.
	DeploymentMethod string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Builder writes finished presentations.
type Builder struct {
	cfg Config
}

// New returns a Builder with defaults applied.
func New(cfg Config) *Builder {
	cfg.defaults()
	return &Builder{cfg: cfg}
}
