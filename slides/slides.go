// Package slides maps an extracted proposal onto the deck's fixed slide
// taxonomy and resolves each module's remote media through the fetcher.
package slides

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/deckgen/mediafetch"
	"github.com/hazyhaar/deckgen/proposal"
)

// Slide types produced by the composer.
const (
	TypeTitle    = "title"
	TypeBullets  = "content_bullets"
	TypeColumns  = "two_column"
	TypeDiagram  = "diagram"
	TypeTimeline = "timeline"
	TypeModule   = "module_description"
)

// Media tri-state kinds on module slides.
const (
	MediaImage = "image"
	MediaVideo = "video"
	MediaNone  = "none"
)

// Column is one side of a two_column slide.
type Column struct {
	Title   string   `json:"title"`
	Content []string `json:"content"`
}

// Diagram is the architecture drawing plus its prose description.
type Diagram struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// TimelineMilestone is one phase on the timeline slide. Milestone notes are
// extraction detail and never reach the slide.
type TimelineMilestone struct {
	Phase string `json:"phase"`
	Event string `json:"event"`
	Date  string `json:"date"`
}

// ModuleContent is the structured body of a module_description slide.
type ModuleContent struct {
	Purpose          string `json:"purpose"`
	AlertLogic       string `json:"alert_logic"`
	Preconditions    string `json:"preconditions"`
	DataRequirements string `json:"data_requirements,omitempty"`
}

// Media is the resolved media of a module slide. Kind "none" marks a slide
// for manual insertion; OriginalURL is kept whenever the template carried a
// URL, fetched or not, so the deck can always show where the media lives.
type Media struct {
	Kind        string `json:"kind"`
	Path        string `json:"path,omitempty"`
	OriginalURL string `json:"original_url,omitempty"`
}

// Slide is one deck slide. Exactly the fields for its Type are set.
type Slide struct {
	Number     int                 `json:"slide_number"`
	Type       string              `json:"type"`
	Title      string              `json:"title"`
	Date       string              `json:"date,omitempty"`
	Content    []proposal.Bullet   `json:"content,omitempty"`
	Left       *Column             `json:"left_column,omitempty"`
	Right      *Column             `json:"right_column,omitempty"`
	Diagram    *Diagram            `json:"diagram,omitempty"`
	Timeline   []TimelineMilestone `json:"timeline,omitempty"`
	ModuleType string              `json:"module_type,omitempty"`
	Module     *ModuleContent      `json:"module,omitempty"`
	Media      *Media              `json:"media,omitempty"`
	Category   string              `json:"category,omitempty"`
}

// Deck is the composed slide structure.
type Deck struct {
	ProjectName string  `json:"project_name"`
	ClientName  string  `json:"client_name"`
	TotalSlides int     `json:"total_slides"`
	Slides      []Slide `json:"slides"`
}

// MediaFetcher resolves one remote media reference into a local file.
// *mediafetch.Fetcher satisfies it; tests substitute fakes.
type MediaFetcher interface {
	Fetch(ctx context.Context, ref mediafetch.Reference, outputPath string) mediafetch.Outcome
}

// Config configures a Composer.
type Config struct {
	// Fetcher resolves module media. Nil disables fetching: every module
	// slide gets a manual-insertion marker.
	Fetcher MediaFetcher

	// MediaDir receives fetched media files. Required when Fetcher is set.
	MediaDir string

	// DiagramCode is mermaid source for the architecture slide, usually
	// read from a sidecar file. Empty renders the description alone.
	DiagramCode string

	// Provider names the left scope column. Defaults to "viAct".
	Provider string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Provider == "" {
		c.Provider = "viAct"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Composer builds a Deck from a parsed proposal.
type Composer struct {
	cfg Config
}

// New returns a Composer with defaults applied.
func New(cfg Config) *Composer {
	cfg.defaults()
	return &Composer{cfg: cfg}
}
