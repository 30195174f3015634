package slides

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/deckgen/mediafetch"
	"github.com/hazyhaar/deckgen/proposal"
)

const sampleDeckTemplate = `# Dockside Monitoring Technical Proposal

## 1. COVER PAGE

**Project Name:** Dockside Monitoring
**Date:** 2026-08-01

## 2. PROJECT REQUIREMENT STATEMENT

**Project Owner:** Harbour Works BV
**Camera Count:** 8
**AI Modules:**
1. Helmet Detection
2. Danger Alert
3. Visitor Counting

## 3. SCOPE OF WORK

### viAct Responsibilities:
- Platform deployment
- Model tuning

### Client Responsibilities:
- Camera streams

## 4. SYSTEM ARCHITECTURE

### Data Flow
Streams reach the edge node first.
Alerts fan out to the dashboard.

## 5. SYSTEM REQUIREMENTS

### Network
- 10 Mbps per camera

### Camera
- Fixed mount, 1080p

### AI Training
- 1x A4000 GPU
- 64 GB RAM

### Dashboard
- Modern browser

## 6. IMPLEMENTATION PLAN (TIMELINE)

**Phase T0: Project Award**

**Phase T1: Go Live** (T0 + 6 weeks)
- Acceptance test

## 7. PROPOSED MODULES & FUNCTIONAL DESCRIPTION

### Module 1: Helmet Detection
**Purpose Description:** Spot missing helmets.
**Alert Trigger Logic:** Alert after 3 seconds.
**Preconditions:** Zone camera coverage.
**Image URL:** https://drive.google.com/file/d/IMG1/view
**Video URL:** https://drive.google.com/file/d/VID1/view

### Module 2: Danger Alert
**Purpose Description:** Flag restricted-zone entry.
**Alert Trigger Logic:** Alert on zone overlap.
**Preconditions:** Zone masks configured.
**Image URL:** https://example.com/danger.png

### Module 3: Visitor Counting
**Purpose Description:** Count visitors at the gate.
**Alert Trigger Logic:** Daily tally report.
**Preconditions:** Gate camera installed.

## 8. USER INTERFACE & REPORTING

### Live Dashboard
Alert feed with snapshots.

### Weekly Reports
Emailed PDF summaries.
`

type fakeFetcher struct {
	refs   []mediafetch.Reference
	status mediafetch.Status
}

func (f *fakeFetcher) Fetch(_ context.Context, ref mediafetch.Reference, outputPath string) mediafetch.Outcome {
	f.refs = append(f.refs, ref)
	out := mediafetch.Outcome{Status: f.status, OriginalURL: ref.URL}
	if f.status == mediafetch.StatusFetched {
		out.LocalPath = outputPath
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func composeSample(t *testing.T, fetcher MediaFetcher) *Deck {
	t.Helper()

	p, err := proposal.ParseMarkdown("sample", []byte(sampleDeckTemplate))
	if err != nil {
		t.Fatalf("ParseMarkdown: %v", err)
	}

	c := New(Config{
		Fetcher:     fetcher,
		MediaDir:    t.TempDir(),
		DiagramCode: "graph LR\nA-->B",
		Logger:      quietLogger(),
	})
	d, err := c.Compose(context.Background(), p)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	return d
}

func TestComposeSlideOrder(t *testing.T) {
	d := composeSample(t, &fakeFetcher{status: mediafetch.StatusFetched})

	want := []string{
		TypeTitle,
		TypeBullets,  // project requirement
		TypeColumns,  // scope
		TypeDiagram,  // architecture
		TypeBullets,  // architecture description (Data Flow subsection)
		TypeBullets,  // network + camera
		TypeBullets,  // training + dashboard, under the item cap
		TypeTimeline,
		TypeModule, TypeModule, TypeModule,
		TypeBullets, TypeBullets, // UI subsections
	}

	if d.TotalSlides != len(want) {
		t.Fatalf("total slides = %d, want %d: %s", d.TotalSlides, len(want), d.Summary())
	}
	for i, s := range d.Slides {
		if s.Type != want[i] {
			t.Errorf("slide %d type = %s, want %s", i+1, s.Type, want[i])
		}
		if s.Number != i+1 {
			t.Errorf("slide %d numbered %d", i+1, s.Number)
		}
	}
}

func TestComposeTitleSlide(t *testing.T) {
	d := composeSample(t, nil)

	s := d.Slides[0]
	if s.Title != "Video Analytics Solution Proposal for Harbour Works BV" {
		t.Errorf("title = %q", s.Title)
	}
	if s.Date != "2026-08-01" {
		t.Errorf("date = %q", s.Date)
	}
}

func TestComposeFlattensModuleList(t *testing.T) {
	d := composeSample(t, nil)

	var texts []string
	for _, b := range d.Slides[1].Content {
		if b.Level != 0 {
			t.Errorf("requirement bullet %q at level %d, want 0", b.Text, b.Level)
		}
		texts = append(texts, b.Text)
	}

	joined := strings.Join(texts, "|")
	if !strings.Contains(joined, "AI Modules: Helmet Detection") {
		t.Errorf("first module not labelled: %v", texts)
	}
	if !strings.Contains(joined, "|Danger Alert|") && !strings.HasSuffix(joined, "Visitor Counting") {
		t.Errorf("remaining modules not flattened: %v", texts)
	}
	if strings.Contains(joined, "1.") {
		t.Errorf("numbered prefixes kept: %v", texts)
	}
}

func TestComposeScopeColumns(t *testing.T) {
	d := composeSample(t, nil)

	s := d.Slides[2]
	if s.Left.Title != "viAct Responsibilities" || len(s.Left.Content) != 2 {
		t.Errorf("left column = %+v", s.Left)
	}
	if s.Right.Title != "Client Responsibilities" || len(s.Right.Content) != 1 {
		t.Errorf("right column = %+v", s.Right)
	}
}

func TestComposeDiagramSlide(t *testing.T) {
	d := composeSample(t, nil)

	s := d.Slides[3]
	if s.Diagram == nil || s.Diagram.Type != "mermaid" {
		t.Fatalf("diagram = %+v", s.Diagram)
	}
	if s.Diagram.Code == "" {
		t.Error("diagram code not carried through")
	}
	if !strings.Contains(s.Diagram.Description, "edge node") {
		t.Errorf("description = %q", s.Diagram.Description)
	}
}

func TestComposeModuleMedia(t *testing.T) {
	fetcher := &fakeFetcher{status: mediafetch.StatusFetched}
	d := composeSample(t, fetcher)

	var modules []Slide
	for _, s := range d.Slides {
		if s.Type == TypeModule {
			modules = append(modules, s)
		}
	}
	if len(modules) != 3 {
		t.Fatalf("module slides = %d", len(modules))
	}

	// Helmet Detection has both URLs: only the video may be fetched.
	helmet := modules[0]
	if helmet.Title != "Helmet Detection" {
		t.Fatalf("group order wrong, first module = %q", helmet.Title)
	}
	if helmet.Media.Kind != MediaVideo {
		t.Errorf("media kind = %s, want video", helmet.Media.Kind)
	}
	if helmet.Media.Path == "" || helmet.Media.OriginalURL == "" {
		t.Errorf("video media = %+v", helmet.Media)
	}

	danger := modules[1]
	if danger.Media.Kind != MediaImage {
		t.Errorf("image-only module media = %+v", danger.Media)
	}

	visitor := modules[2]
	if visitor.Media.Kind != MediaNone || visitor.Media.OriginalURL != "" {
		t.Errorf("no-url module media = %+v", visitor.Media)
	}

	// One fetch per module carrying a URL, video preferred over image.
	if len(fetcher.refs) != 2 {
		t.Fatalf("fetch calls = %d, want 2", len(fetcher.refs))
	}
	if fetcher.refs[0].Kind != mediafetch.KindVideo || !strings.Contains(fetcher.refs[0].URL, "VID1") {
		t.Errorf("first fetch = %+v, want the video reference", fetcher.refs[0])
	}
	if fetcher.refs[1].Kind != mediafetch.KindImage {
		t.Errorf("second fetch = %+v, want the image reference", fetcher.refs[1])
	}
}

func TestComposeFailedFetchDegradesToManual(t *testing.T) {
	d := composeSample(t, &fakeFetcher{status: mediafetch.StatusFailed})

	for _, s := range d.Slides {
		if s.Type != TypeModule || s.Title != "Helmet Detection" {
			continue
		}
		if s.Media.Kind != MediaNone {
			t.Errorf("media kind = %s, want none after failed fetch", s.Media.Kind)
		}
		if !strings.Contains(s.Media.OriginalURL, "VID1") {
			t.Errorf("original url = %q, want the video url kept", s.Media.OriginalURL)
		}
		return
	}
	t.Fatal("helmet module slide not found")
}

// writingFetcher behaves like the real fetcher: it creates the output file
// where it is told to, so a missing parent directory is a hard failure.
type writingFetcher struct{}

func (writingFetcher) Fetch(_ context.Context, ref mediafetch.Reference, outputPath string) mediafetch.Outcome {
	if err := os.WriteFile(outputPath, []byte("payload"), 0o644); err != nil {
		return mediafetch.Outcome{Status: mediafetch.StatusFailed, OriginalURL: ref.URL}
	}
	return mediafetch.Outcome{Status: mediafetch.StatusFetched, LocalPath: outputPath, OriginalURL: ref.URL}
}

// A fresh run starts with no media directory on disk; the composer must
// create it before the first fetch writes into it.
func TestComposeCreatesMediaDir(t *testing.T) {
	p, err := proposal.ParseMarkdown("sample", []byte(sampleDeckTemplate))
	if err != nil {
		t.Fatalf("ParseMarkdown: %v", err)
	}

	mediaDir := filepath.Join(t.TempDir(), "run", "media")
	c := New(Config{
		Fetcher:  writingFetcher{},
		MediaDir: mediaDir,
		Logger:   quietLogger(),
	})
	d, err := c.Compose(context.Background(), p)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	for _, s := range d.Slides {
		if s.Type != TypeModule || s.Title != "Helmet Detection" {
			continue
		}
		if s.Media.Kind != MediaVideo {
			t.Fatalf("media = %+v, want fetched video", s.Media)
		}
		if _, err := os.Stat(s.Media.Path); err != nil {
			t.Fatalf("fetched media missing on disk: %v", err)
		}
		if filepath.Dir(s.Media.Path) != mediaDir {
			t.Errorf("media path = %q, want it under %q", s.Media.Path, mediaDir)
		}
		return
	}
	t.Fatal("helmet module slide not found")
}

func TestComposeNilFetcherMarksManual(t *testing.T) {
	d := composeSample(t, nil)

	for _, s := range d.Slides {
		if s.Type == TypeModule && s.Title == "Danger Alert" {
			if s.Media.Kind != MediaNone || s.Media.OriginalURL == "" {
				t.Errorf("media = %+v, want manual marker with url", s.Media)
			}
			return
		}
	}
	t.Fatal("danger module slide not found")
}

func TestComposeTimelineSlide(t *testing.T) {
	d := composeSample(t, nil)

	for _, s := range d.Slides {
		if s.Type != TypeTimeline {
			continue
		}
		if len(s.Timeline) != 2 {
			t.Fatalf("milestones = %+v", s.Timeline)
		}
		if s.Timeline[1].Date != "T1 = T0 + 6 weeks" {
			t.Errorf("date = %q", s.Timeline[1].Date)
		}
		return
	}
	t.Fatal("timeline slide not found")
}

func TestComposeMissingModuleFieldFails(t *testing.T) {
	p := &proposal.Proposal{
		ProjectName: "X",
		ClientName:  "Y",
		Sections: map[string]string{
			proposal.SectionModules: "### Module 1: Helmet Detection\n**Purpose Description:** Spot helmets.\n",
		},
	}

	c := New(Config{Logger: quietLogger()})
	if _, err := c.Compose(context.Background(), p); err == nil {
		t.Fatal("expected error for module missing required fields")
	} else if !strings.Contains(err.Error(), "Helmet Detection") {
		t.Errorf("error does not name the module: %v", err)
	}
}

// Grouped requirements stay on one slide under the cap and split by whole
// section above it.
func TestComposeRequirementsSplit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("### AI Training\n")
	for i := 0; i < 8; i++ {
		sb.WriteString("- training item\n")
	}
	sb.WriteString("### AI Inference\n")
	for i := 0; i < 5; i++ {
		sb.WriteString("- inference item\n")
	}
	sb.WriteString("### Dashboard\n")
	for i := 0; i < 5; i++ {
		sb.WriteString("- dashboard item\n")
	}

	p := &proposal.Proposal{
		Sections: map[string]string{
			proposal.SectionRequirements: sb.String(),
		},
	}

	c := New(Config{Logger: quietLogger()})
	d, err := c.Compose(context.Background(), p)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	var reqSlides []Slide
	for _, s := range d.Slides {
		if s.Title == "System Requirements" {
			reqSlides = append(reqSlides, s)
		}
	}
	if len(reqSlides) != 2 {
		t.Fatalf("requirement slides = %d, want training+inference then dashboard", len(reqSlides))
	}
	if n := len(reqSlides[0].Content); n != 15 {
		t.Errorf("first slide items = %d, want 15", n)
	}
	if n := len(reqSlides[1].Content); n != 6 {
		t.Errorf("dashboard slide items = %d, want 6", n)
	}
}

func TestSummaryMentionsEverySlide(t *testing.T) {
	d := composeSample(t, &fakeFetcher{status: mediafetch.StatusFetched})

	summary := d.Summary()
	for _, s := range d.Slides {
		if !strings.Contains(summary, s.Title) {
			t.Errorf("summary missing slide %q", s.Title)
		}
	}
	if !strings.Contains(summary, "media: video") {
		t.Error("summary missing media status")
	}
}
