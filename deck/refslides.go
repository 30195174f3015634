package deck

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

// Architecture reference deck: deployment method to slide index (0-based).
var deploymentSlideIndex = map[string]int{
	"cloud":                   1,
	"on-premise":              2,
	"hybrid":                  3,
	"hybrid-training-on-prem": 4,
}

// NormalizeDeployment folds free-text deployment descriptions onto the
// canonical method names. Unknown text comes back lowercased as-is, which
// simply misses the slide map and skips the splice.
func NormalizeDeployment(method string) string {
	m := strings.ToLower(strings.TrimSpace(method))
	switch {
	case strings.Contains(m, "cloud") && !strings.Contains(m, "hybrid"):
		return "cloud"
	case strings.Contains(m, "hybrid"):
		if strings.Contains(m, "training") && strings.Contains(strings.ReplaceAll(m, "-", ""), "onprem") {
			return "hybrid-training-on-prem"
		}
		return "hybrid"
	case strings.Contains(strings.ReplaceAll(m, "-", ""), "onprem"):
		return "on-premise"
	case strings.Contains(m, "4g") || strings.Contains(m, "vpn"):
		return "4g-vpn-bridge"
	}
	return m
}

// architectureSlide loads the template slide matching the configured
// deployment method, or nil when the deck or method is not usable.
func (b *Builder) architectureSlide() (*outSlide, error) {
	if b.cfg.ArchitectureDeck == "" || b.cfg.DeploymentMethod == "" {
		return nil, nil
	}

	method := NormalizeDeployment(b.cfg.DeploymentMethod)
	idx, ok := deploymentSlideIndex[method]
	if !ok {
		b.cfg.Logger.Info("deployment method has no architecture template, skipping",
			"method", method)
		return nil, nil
	}

	loaded, err := loadRefSlides(b.cfg.ArchitectureDeck, "arch", []int{idx})
	if err != nil {
		return nil, err
	}
	if len(loaded) == 0 {
		b.cfg.Logger.Warn("architecture deck too short for deployment method",
			"method", method, "slide_index", idx)
		return nil, nil
	}
	return &loaded[0], nil
}

// librarySlides loads the standard company slides: 2-10 for the front block
// and 11-25 for the tail. Decks shorter than each block skip that block, as
// partial company boilerplate is worse than none.
func (b *Builder) librarySlides() (front, back []outSlide, err error) {
	if b.cfg.LibraryDeck == "" {
		return nil, nil, nil
	}

	count, err := refSlideCount(b.cfg.LibraryDeck)
	if err != nil {
		return nil, nil, err
	}

	if count >= 10 {
		front, err = loadRefSlides(b.cfg.LibraryDeck, "libf", indexRange(1, 10))
		if err != nil {
			return nil, nil, err
		}
	} else {
		b.cfg.Logger.Info("library deck too short for front block", "slides", count)
	}
	if count >= 25 {
		back, err = loadRefSlides(b.cfg.LibraryDeck, "libb", indexRange(10, 25))
		if err != nil {
			return nil, nil, err
		}
	} else {
		b.cfg.Logger.Info("library deck too short for tail block", "slides", count)
	}
	return front, back, nil
}

func indexRange(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

// refPackage is a reference .pptx opened for slide extraction.
type refPackage struct {
	parts      map[string][]byte
	slideParts []string // part names in presentation order
}

func openRefPackage(deckPath string) (*refPackage, error) {
	zr, err := zip.OpenReader(deckPath)
	if err != nil {
		return nil, fmt.Errorf("deck: open reference %s: %w", deckPath, err)
	}
	defer zr.Close()

	parts := make(map[string][]byte, len(zr.File))
	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("deck: reference part %s: %w", zf.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("deck: reference part %s: %w", zf.Name, err)
		}
		parts[zf.Name] = data
	}

	var pres presentationPart
	if err := xml.Unmarshal(parts["ppt/presentation.xml"], &pres); err != nil {
		return nil, fmt.Errorf("deck: reference %s: parse presentation: %w", deckPath, err)
	}
	var presRels relationships
	if err := xml.Unmarshal(parts["ppt/_rels/presentation.xml.rels"], &presRels); err != nil {
		return nil, fmt.Errorf("deck: reference %s: parse presentation rels: %w", deckPath, err)
	}

	byID := make(map[string]string, len(presRels.Rels))
	for _, r := range presRels.Rels {
		if r.Type == relTypeSlide {
			byID[r.ID] = "ppt/" + r.Target
		}
	}

	p := &refPackage{parts: parts}
	for _, id := range pres.SlideIDs {
		if name, ok := byID[id.RID]; ok {
			p.slideParts = append(p.slideParts, name)
		}
	}
	return p, nil
}

func refSlideCount(deckPath string) (int, error) {
	p, err := openRefPackage(deckPath)
	if err != nil {
		return 0, err
	}
	return len(p.slideParts), nil
}

// loadRefSlides extracts the slides at the given 0-based indices. Media
// parts are renamed with the prefix so they cannot collide with anything
// else in the output package; their relationship IDs stay untouched, which
// keeps the slide XML's r:embed references valid without rewriting them.
func loadRefSlides(deckPath, prefix string, indices []int) ([]outSlide, error) {
	p, err := openRefPackage(deckPath)
	if err != nil {
		return nil, err
	}

	var out []outSlide
	for _, idx := range indices {
		if idx < 0 || idx >= len(p.slideParts) {
			continue
		}
		s, err := p.extractSlide(fmt.Sprintf("%s%d", prefix, idx), p.slideParts[idx])
		if err != nil {
			return nil, fmt.Errorf("deck: reference %s slide %d: %w", deckPath, idx+1, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (p *refPackage) extractSlide(tag, partName string) (outSlide, error) {
	xmlData, ok := p.parts[partName]
	if !ok {
		return outSlide{}, fmt.Errorf("part %s missing", partName)
	}

	s := outSlide{
		xml:  xmlData,
		rels: []relationship{{ID: "rIdLayout", Type: relTypeSlideLayout, Target: "../slideLayouts/slideLayout1.xml"}},
	}

	relsName := path.Join(path.Dir(partName), "_rels", path.Base(partName)+".rels")
	relsData, ok := p.parts[relsName]
	if !ok {
		return s, nil
	}
	var rels relationships
	if err := xml.Unmarshal(relsData, &rels); err != nil {
		return outSlide{}, fmt.Errorf("parse %s: %w", relsName, err)
	}

	for _, r := range rels.Rels {
		switch {
		case r.TargetMode == "External":
			s.rels = append(s.rels, r)
		case r.Type == relTypeSlideLayout:
			// Replaced by the fixed layout rel above; reference decks'
			// layout chains are not copied.
		case isMediaRel(r.Type):
			resolved := resolvePartTarget(partName, r.Target)
			data, ok := p.parts[resolved]
			if !ok {
				return outSlide{}, fmt.Errorf("relationship target %s missing", resolved)
			}
			newName := "ppt/media/" + tag + "_" + path.Base(resolved)
			s.media = append(s.media, mediaPart{name: newName, data: data})
			s.rels = append(s.rels, relationship{
				ID:     r.ID,
				Type:   r.Type,
				Target: "../media/" + path.Base(newName),
			})
		default:
			// Notes, charts and other non-media relationships are not
			// carried over, matching what the splice supports.
		}
	}
	return s, nil
}

func isMediaRel(relType string) bool {
	for _, kind := range []string{"/image", "/video", "/audio", "/media"} {
		if strings.HasSuffix(relType, kind) {
			return true
		}
	}
	return false
}

// resolvePartTarget resolves a relationship target relative to its part.
func resolvePartTarget(partName, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(partName), target)
}
