package render

import (
	"html/template"
	"path/filepath"

	"github.com/hazyhaar/deckgen/slides"
)

// View models for the slide templates. All free text passes through the
// strict sanitiser and is carried as template.HTML so entities survive a
// single escaping pass.

type bulletView struct {
	Level int
	Text  template.HTML
}

type columnView struct {
	Title template.HTML
	Items []template.HTML
}

type milestoneView struct {
	Phase template.HTML
	Event template.HTML
	Date  template.HTML
}

type moduleView struct {
	Purpose          template.HTML
	AlertLogic       template.HTML
	Preconditions    template.HTML
	DataRequirements template.HTML
}

type mediaView struct {
	Kind        string
	FileURL     string
	OriginalURL string
}

type slideView struct {
	Number   int
	Total    int
	Project  template.HTML
	Title    template.HTML
	Date     template.HTML
	Bullets  []bulletView
	Left     *columnView
	Right    *columnView
	Code     string
	Summary  template.HTML
	Timeline []milestoneView
	Type     template.HTML
	Category template.HTML
	Module   *moduleView
	Media    *mediaView
}

func (r *Renderer) clean(s string) template.HTML {
	return template.HTML(r.policy.Sanitize(s))
}

func (r *Renderer) viewFor(d *slides.Deck, s slides.Slide) slideView {
	v := slideView{
		Number:   s.Number,
		Total:    d.TotalSlides,
		Project:  r.clean(d.ProjectName),
		Title:    r.clean(s.Title),
		Date:     r.clean(s.Date),
		Type:     r.clean(s.ModuleType),
		Category: r.clean(s.Category),
	}

	for _, b := range s.Content {
		v.Bullets = append(v.Bullets, bulletView{Level: b.Level, Text: r.clean(b.Text)})
	}
	if s.Left != nil {
		v.Left = r.columnView(s.Left)
	}
	if s.Right != nil {
		v.Right = r.columnView(s.Right)
	}
	if s.Diagram != nil {
		// Mermaid source goes into a <pre> block as-is; the template's
		// own escaping handles it.
		v.Code = s.Diagram.Code
		v.Summary = r.clean(s.Diagram.Description)
	}
	for _, m := range s.Timeline {
		v.Timeline = append(v.Timeline, milestoneView{
			Phase: r.clean(m.Phase),
			Event: r.clean(m.Event),
			Date:  r.clean(m.Date),
		})
	}
	if s.Module != nil {
		v.Module = &moduleView{
			Purpose:          r.clean(s.Module.Purpose),
			AlertLogic:       r.clean(s.Module.AlertLogic),
			Preconditions:    r.clean(s.Module.Preconditions),
			DataRequirements: r.clean(s.Module.DataRequirements),
		}
	}
	if s.Media != nil {
		v.Media = &mediaView{
			Kind:        s.Media.Kind,
			OriginalURL: s.Media.OriginalURL,
		}
		if s.Media.Path != "" {
			if abs, err := filepath.Abs(s.Media.Path); err == nil {
				v.Media.FileURL = "file://" + abs
			}
		}
	}
	return v
}

func (r *Renderer) columnView(c *slides.Column) *columnView {
	out := &columnView{Title: r.clean(c.Title)}
	for _, item := range c.Content {
		out.Items = append(out.Items, r.clean(item))
	}
	return out
}
