package slides

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// WriteJSON writes the slide structure as indented JSON.
func (d *Deck) WriteJSON(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("slides: marshal deck: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("slides: write %s: %w", path, err)
	}
	return nil
}

// Summary renders a human-readable markdown digest of the deck, one line
// per slide plus media status for module slides.
func (d *Deck) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Slide Structure: %s\n\n", d.ProjectName)
	fmt.Fprintf(&b, "Client: %s\n", d.ClientName)
	fmt.Fprintf(&b, "Total slides: %d\n\n", d.TotalSlides)

	for _, s := range d.Slides {
		fmt.Fprintf(&b, "%d. [%s] %s", s.Number, s.Type, s.Title)
		switch {
		case s.Type == TypeModule && s.Media != nil:
			switch s.Media.Kind {
			case MediaNone:
				if s.Media.OriginalURL != "" {
					fmt.Fprintf(&b, " - media: manual insertion (%s)", s.Media.OriginalURL)
				} else {
					b.WriteString(" - media: none")
				}
			default:
				fmt.Fprintf(&b, " - media: %s %s", s.Media.Kind, s.Media.Path)
			}
		case s.Type == TypeTimeline:
			fmt.Fprintf(&b, " (%d milestones)", len(s.Timeline))
		case s.Type == TypeBullets:
			fmt.Fprintf(&b, " (%d items)", len(s.Content))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteSummary writes Summary to path.
func (d *Deck) WriteSummary(path string) error {
	if err := os.WriteFile(path, []byte(d.Summary()), 0o644); err != nil {
		return fmt.Errorf("slides: write %s: %w", path, err)
	}
	return nil
}
