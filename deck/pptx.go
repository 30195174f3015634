package deck

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/hazyhaar/deckgen/slides"
)

type mediaPart struct {
	name string // full part name, e.g. ppt/media/gen3.png
	data []byte
}

// outSlide is one slide ready to be written: final slide XML, final
// relationship targets, and the media parts it owns.
type outSlide struct {
	xml   []byte
	rels  []relationship
	media []mediaPart
}

// Write assembles the finished .pptx at path: one full-bleed picture slide
// per rendered image, with reference slides spliced in (library slides 2-10
// after the title slide, the architecture template after the diagram slide,
// library slides 11-25 at the end).
func (b *Builder) Write(outPath string, d *slides.Deck, images []SlideImage) error {
	if len(images) == 0 {
		return fmt.Errorf("deck: no rendered slides to package")
	}

	sorted := make([]SlideImage, len(images))
	copy(sorted, images)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	gen := make([]outSlide, 0, len(sorted))
	for _, img := range sorted {
		s, err := b.pictureSlide(img)
		if err != nil {
			return err
		}
		gen = append(gen, s)
	}

	arch, err := b.architectureSlide()
	if err != nil {
		return err
	}
	libFront, libBack, err := b.librarySlides()
	if err != nil {
		return err
	}

	final := spliceOrder(gen, diagramPosition(d, sorted), arch, libFront, libBack)
	return writePackage(outPath, d.ProjectName, final)
}

// diagramPosition finds the index (within the rendered slides) of the
// architecture diagram slide. Slide 4 is the documented fallback position
// when the deck has no diagram slide.
func diagramPosition(d *slides.Deck, images []SlideImage) int {
	number := -1
	for _, s := range d.Slides {
		if s.Type == slides.TypeDiagram {
			number = s.Number
			break
		}
	}
	if number >= 0 {
		for i, img := range images {
			if img.Number == number {
				return i
			}
		}
	}
	if len(images) < 4 {
		return len(images) - 1
	}
	return 3
}

// spliceOrder lays out the final deck: generated title first, library front
// block, remaining generated slides with the architecture template right
// after the diagram slide, library tail block last.
func spliceOrder(gen []outSlide, diagramPos int, arch *outSlide, libFront, libBack []outSlide) []outSlide {
	final := make([]outSlide, 0, len(gen)+len(libFront)+len(libBack)+1)
	final = append(final, gen[0])
	final = append(final, libFront...)
	for i := 1; i < len(gen); i++ {
		final = append(final, gen[i])
		if arch != nil && i == diagramPos {
			final = append(final, *arch)
		}
	}
	if arch != nil && diagramPos == 0 {
		final = append(final, *arch)
	}
	return append(final, libBack...)
}

// pictureSlide builds a full-bleed picture slide from one rendered PNG.
func (b *Builder) pictureSlide(img SlideImage) (outSlide, error) {
	data, err := os.ReadFile(img.PNGPath)
	if err != nil {
		return outSlide{}, fmt.Errorf("deck: read slide image: %w", err)
	}

	mediaName := fmt.Sprintf("ppt/media/gen%d.png", img.Number)
	rels := []relationship{
		{ID: "rId1", Type: relTypeSlideLayout, Target: "../slideLayouts/slideLayout1.xml"},
		{ID: "rId2", Type: relTypeImage, Target: "../" + strings.TrimPrefix(mediaName, "ppt/")},
	}
	if img.VideoURL != "" {
		rels = append(rels, relationship{
			ID: "rId3", Type: relTypeHyperlink, Target: escapeURL(img.VideoURL), TargetMode: "External",
		})
	}

	return outSlide{
		xml:   pictureSlideXML(img.VideoURL),
		rels:  rels,
		media: []mediaPart{{name: mediaName, data: data}},
	}, nil
}

func escapeURL(u string) string {
	return strings.ReplaceAll(u, " ", "%20")
}

func pictureSlideXML(videoURL string) []byte {
	var sb strings.Builder
	sb.WriteString(xml.Header)
	sb.WriteString(`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`)
	sb.WriteString(`<p:cSld><p:spTree>`)
	sb.WriteString(`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`)
	sb.WriteString(`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`)

	sb.WriteString(`<p:pic>`)
	sb.WriteString(`<p:nvPicPr><p:cNvPr id="2" name="Slide image"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>`)
	sb.WriteString(`<p:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`)
	fmt.Fprintf(&sb, `<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`, slideWidthEMU, slideHeightEMU)
	sb.WriteString(`</p:pic>`)

	if videoURL != "" {
		caption := "Demo video: " + videoURL
		sb.WriteString(`<p:sp>`)
		sb.WriteString(`<p:nvSpPr><p:cNvPr id="3" name="Video link"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`)
		fmt.Fprintf(&sb, `<p:spPr><a:xfrm><a:off x="304800" y="%d"/><a:ext cx="%d" cy="457200"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`,
			slideHeightEMU-609600, slideWidthEMU-609600)
		sb.WriteString(`<p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r>`)
		sb.WriteString(`<a:rPr lang="en-US" sz="1100" u="sng"><a:solidFill><a:srgbClr val="1D70B8"/></a:solidFill><a:hlinkClick xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" r:id="rId3"/></a:rPr>`)
		sb.WriteString(`<a:t>` + escapeXML(caption) + `</a:t>`)
		sb.WriteString(`</a:r></a:p></p:txBody></p:sp>`)
	}

	sb.WriteString(`</p:spTree></p:cSld>`)
	sb.WriteString(`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`)
	sb.WriteString(`</p:sld>`)
	return []byte(sb.String())
}

// writePackage writes the zip with all fixed parts plus the final slides.
func writePackage(outPath, title string, final []outSlide) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("deck: create %s: %w", outPath, err)
	}
	zw := zip.NewWriter(f)

	werr := writeParts(zw, title, final)

	if err := zw.Close(); werr == nil {
		werr = err
	}
	if err := f.Close(); werr == nil {
		werr = err
	}
	if werr != nil {
		os.Remove(outPath)
		return fmt.Errorf("deck: write %s: %w", outPath, werr)
	}
	return nil
}

func writeParts(zw *zip.Writer, title string, final []outSlide) error {
	extraExts := map[string]bool{}
	for _, s := range final {
		for _, m := range s.media {
			ext := strings.TrimPrefix(strings.ToLower(path.Ext(m.name)), ".")
			extraExts[ext] = true
		}
	}

	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", contentTypesXML(len(final), extraExts)},
		{"_rels/.rels", rootRelsXML()},
		{"docProps/core.xml", corePropsXML(title)},
		{"docProps/app.xml", appPropsXML(len(final))},
		{"ppt/presentation.xml", presentationXML(len(final))},
		{"ppt/_rels/presentation.xml.rels", presentationRelsXML(len(final))},
		{"ppt/slideMasters/slideMaster1.xml", slideMasterXML()},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRelsXML()},
		{"ppt/slideLayouts/slideLayout1.xml", slideLayoutXML()},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", slideLayoutRelsXML()},
		{"ppt/theme/theme1.xml", themeXML()},
	}
	for _, p := range parts {
		if err := writePart(zw, p.name, p.data); err != nil {
			return err
		}
	}

	for i, s := range final {
		n := i + 1
		if err := writePart(zw, fmt.Sprintf("ppt/slides/slide%d.xml", n), s.xml); err != nil {
			return err
		}
		if err := writePart(zw, fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), renderRels(s.rels)); err != nil {
			return err
		}
		for _, m := range s.media {
			if err := writePart(zw, m.name, m.data); err != nil {
				return err
			}
		}
	}
	return nil
}

func writePart(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("part %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("part %s: %w", name, err)
	}
	return nil
}
