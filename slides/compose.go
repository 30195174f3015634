package slides

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/hazyhaar/deckgen/proposal"
)

// maxSlideItems bounds the bullet count of a grouped requirements slide.
// Complete subsections move together; a subsection is never split.
const maxSlideItems = 15

var (
	coverDate       = regexp.MustCompile(`(?i)\*\*Date:?\*\*[:\s]*(\d{4}-\d{2}-\d{2}|\w+\s+\d{4})`)
	numberedPrefix  = regexp.MustCompile(`^\d+\.\s*`)
	detailedArchSub = regexp.MustCompile(`(?i)###\s+.*(Description|Data Flow|Components)`)
)

// Compose maps the proposal onto the slide taxonomy, in fixed order. Module
// media is fetched here, one reference per module, so the deck carries the
// resolved tri-state when composition returns.
func (c *Composer) Compose(ctx context.Context, p *proposal.Proposal) (*Deck, error) {
	d := &Deck{
		ProjectName: p.ProjectName,
		ClientName:  p.ClientName,
	}

	d.add(c.titleSlide(p))
	d.add(c.requirementSlide(p))
	d.add(c.scopeSlide(p))
	d.add(c.architectureSlides(p)...)
	d.add(c.requirementsSlides(p)...)
	d.add(c.timelineSlide(p))

	moduleSlides, err := c.moduleSlides(ctx, p)
	if err != nil {
		return nil, err
	}
	d.add(moduleSlides...)
	d.add(c.interfaceSlides(p)...)

	d.TotalSlides = len(d.Slides)
	return d, nil
}

func (d *Deck) add(slides ...Slide) {
	for _, s := range slides {
		s.Number = len(d.Slides) + 1
		d.Slides = append(d.Slides, s)
	}
}

func (c *Composer) titleSlide(p *proposal.Proposal) Slide {
	cover := p.Section(proposal.SectionCover)

	date := ""
	for _, kv := range proposal.KeyValues(cover) {
		if strings.EqualFold(kv.Key, "Date") {
			date = kv.Value
			break
		}
	}
	if date == "" {
		if m := coverDate.FindStringSubmatch(cover); m != nil {
			date = m[1]
		}
	}
	if date == "" {
		c.cfg.Logger.Warn("cover page carries no date, title slide left undated")
	}

	return Slide{
		Type:  TypeTitle,
		Title: fmt.Sprintf("Video Analytics Solution Proposal for %s", p.ClientName),
		Date:  date,
	}
}

// requirementSlide renders the project facts as level-0 bullets. The AI
// Modules list is flattened: each module becomes its own bullet so the count
// is visible at a glance.
func (c *Composer) requirementSlide(p *proposal.Proposal) Slide {
	var content []proposal.Bullet

	for _, kv := range proposal.KeyValues(p.Section(proposal.SectionRequirement)) {
		lower := strings.ToLower(kv.Key)
		if lower != "ai modules" && lower != "ai module" {
			content = append(content, proposal.Bullet{Text: fmt.Sprintf("%s: %s", kv.Key, kv.Value)})
			continue
		}

		first := true
		for _, line := range strings.Split(kv.Value, "\n") {
			name := strings.TrimSpace(numberedPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
			if name == "" {
				continue
			}
			if first {
				content = append(content, proposal.Bullet{Text: fmt.Sprintf("%s: %s", kv.Key, name)})
				first = false
			} else {
				content = append(content, proposal.Bullet{Text: name})
			}
		}
	}

	return Slide{
		Type:    TypeBullets,
		Title:   "Project Requirement Statement",
		Content: content,
	}
}

func (c *Composer) scopeSlide(p *proposal.Proposal) Slide {
	scope := p.Section(proposal.SectionScope)

	return Slide{
		Type:  TypeColumns,
		Title: "Scope of Work",
		Left: &Column{
			Title:   c.cfg.Provider + " Responsibilities",
			Content: proposal.ScopeBullets(scope, c.cfg.Provider),
		},
		Right: &Column{
			Title:   "Client Responsibilities",
			Content: proposal.ScopeBullets(scope, "Client"),
		},
	}
}

func (c *Composer) architectureSlides(p *proposal.Proposal) []Slide {
	section := p.Section(proposal.SectionArchitecture)

	slides := []Slide{{
		Type:  TypeDiagram,
		Title: "Proposed System Architecture",
		Diagram: &Diagram{
			Type:        "mermaid",
			Code:        c.cfg.DiagramCode,
			Description: architectureDescription(section),
		},
	}}

	if detailedArchSub.MatchString(section) {
		slides = append(slides, Slide{
			Type:    TypeBullets,
			Title:   "System Architecture Description",
			Content: proposal.FormatBullets(section),
		})
	}
	return slides
}

// architectureDescription takes the first few prose lines after the first
// subsection heading.
func architectureDescription(section string) string {
	var description []string
	inBody := false

	for _, line := range strings.Split(section, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "###") {
			inBody = true
			continue
		}
		if inBody && stripped != "" && !strings.HasPrefix(stripped, "|") {
			description = append(description, stripped)
			if len(description) > 3 {
				break
			}
		}
	}
	return strings.Join(description, " ")
}

// requirementsSlides groups System Requirements subsections: Network+Camera
// on one slide; AI Training, AI Inference and Dashboard together when they
// fit, split by complete section otherwise; anything else one slide each.
func (c *Composer) requirementsSlides(p *proposal.Proposal) []Slide {
	subs := proposal.Subsections(p.Section(proposal.SectionRequirements))

	byName := make(map[string]string, len(subs))
	for _, s := range subs {
		byName[s.Name] = s.Content
	}
	pick := func(names ...string) string {
		for _, n := range names {
			if byName[n] != "" {
				return byName[n]
			}
		}
		return ""
	}

	var slides []Slide

	if content := headedBullets("Network", byName["Network"], "Camera", byName["Camera"]); len(content) > 0 {
		slides = append(slides, Slide{Type: TypeBullets, Title: "System Requirements", Content: content})
	}

	training := headedBullets("AI Training", pick("AI Training", "AI Training Workstation"))
	inference := headedBullets("AI Inference", pick("AI Inference", "AI Inference Workstation"))
	dashboard := headedBullets("Dashboard", pick("Dashboard", "Dashboard Workstation"))

	switch total := len(training) + len(inference) + len(dashboard); {
	case total == 0:
	case total <= maxSlideItems:
		content := append(append(training, inference...), dashboard...)
		slides = append(slides, Slide{Type: TypeBullets, Title: "System Requirements", Content: content})
	default:
		if content := append(training, inference...); len(content) > 0 {
			slides = append(slides, Slide{Type: TypeBullets, Title: "System Requirements", Content: content})
		}
		if len(dashboard) > 0 {
			slides = append(slides, Slide{Type: TypeBullets, Title: "System Requirements", Content: dashboard})
		}
	}

	grouped := map[string]bool{
		"Network": true, "Camera": true,
		"AI Training": true, "AI Training Workstation": true,
		"AI Inference": true, "AI Inference Workstation": true,
		"Dashboard": true, "Dashboard Workstation": true,
	}
	for _, s := range subs {
		if grouped[s.Name] || strings.TrimSpace(s.Content) == "" {
			continue
		}
		slides = append(slides, Slide{
			Type:    TypeBullets,
			Title:   "System Requirements: " + s.Name,
			Content: proposal.FormatBullets(s.Content),
		})
	}
	return slides
}

// headedBullets prefixes each subsection's bullets with a level-0 heading
// bullet. Name/content pairs alternate; empty content drops its heading.
func headedBullets(pairs ...string) []proposal.Bullet {
	var out []proposal.Bullet
	for i := 0; i+1 < len(pairs); i += 2 {
		name, content := pairs[i], pairs[i+1]
		if content == "" {
			continue
		}
		out = append(out, proposal.Bullet{Text: name})
		out = append(out, proposal.FormatBullets(content)...)
	}
	return out
}

func (c *Composer) timelineSlide(p *proposal.Proposal) Slide {
	milestones := proposal.Milestones(p.Section(proposal.SectionTimeline))
	if len(milestones) == 0 {
		c.cfg.Logger.Warn("no timeline milestones found, timeline slide left empty")
	}

	timeline := make([]TimelineMilestone, 0, len(milestones))
	for _, m := range milestones {
		timeline = append(timeline, TimelineMilestone{Phase: m.Phase, Event: m.Event, Date: m.Date})
	}

	return Slide{
		Type:     TypeTimeline,
		Title:    "Implementation Plan",
		Timeline: timeline,
	}
}

// moduleSlides builds one slide per module, grouped by category, fetching
// each module's media on the way. Incomplete modules are hard errors: a
// module slide with a blank purpose is worse than no deck.
func (c *Composer) moduleSlides(ctx context.Context, p *proposal.Proposal) ([]Slide, error) {
	modules := proposal.Modules(p.Section(proposal.SectionModules))

	// The fetch strategies create files directly under MediaDir; it must
	// exist before the first module is resolved.
	if c.cfg.Fetcher != nil && c.cfg.MediaDir != "" && len(modules) > 0 {
		if err := os.MkdirAll(c.cfg.MediaDir, 0o755); err != nil {
			return nil, fmt.Errorf("slides: create media dir: %w", err)
		}
	}

	var slides []Slide
	for _, group := range proposal.GroupModules(modules) {
		for _, mod := range group.Modules {
			if mod.Name == "" || strings.HasPrefix(mod.Name, "Type:") {
				return nil, fmt.Errorf("slides: module without a usable name in category %s", group.Category)
			}

			var missing []string
			if strings.TrimSpace(mod.Purpose) == "" {
				missing = append(missing, "Purpose Description")
			}
			if strings.TrimSpace(mod.AlertLogic) == "" {
				missing = append(missing, "Alert Trigger Logic")
			}
			if strings.TrimSpace(mod.Preconditions) == "" {
				missing = append(missing, "Preconditions")
			}
			if len(missing) > 0 {
				return nil, fmt.Errorf("slides: module %q missing required fields: %s",
					mod.Name, strings.Join(missing, ", "))
			}

			slides = append(slides, Slide{
				Type:       TypeModule,
				Title:      mod.Name,
				Category:   group.Category,
				ModuleType: mod.Type,
				Module: &ModuleContent{
					Purpose:          mod.Purpose,
					AlertLogic:       mod.AlertLogic,
					Preconditions:    mod.Preconditions,
					DataRequirements: mod.DataRequirements,
				},
				Media: c.resolveMedia(ctx, mod),
			})
		}
	}
	return slides, nil
}

func (c *Composer) interfaceSlides(p *proposal.Proposal) []Slide {
	var slides []Slide
	for _, sub := range proposal.Subsections(p.Section(proposal.SectionUI)) {
		if strings.TrimSpace(sub.Content) == "" {
			continue
		}
		slides = append(slides, Slide{
			Type:    TypeBullets,
			Title:   sub.Name,
			Content: proposal.FormatBullets(sub.Content),
		})
	}
	return slides
}
