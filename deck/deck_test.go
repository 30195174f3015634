package deck

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/deckgen/slides"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 18))
	for x := 0; x < 32; x++ {
		img.Set(x, 9, color.RGBA{R: 29, G: 112, B: 184, A: 255})
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func slideImages(t *testing.T, dir string, count int) []SlideImage {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	images := make([]SlideImage, 0, count)
	for i := 1; i <= count; i++ {
		p := filepath.Join(dir, fmt.Sprintf("slide-%02d.png", i))
		writePNG(t, p)
		images = append(images, SlideImage{Number: i, PNGPath: p})
	}
	return images
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func deckMeta(count, diagramAt int) *slides.Deck {
	d := &slides.Deck{ProjectName: "Dockside Monitoring", TotalSlides: count}
	for i := 1; i <= count; i++ {
		s := slides.Slide{Number: i, Type: slides.TypeBullets}
		if i == diagramAt {
			s.Type = slides.TypeDiagram
		}
		d.Slides = append(d.Slides, s)
	}
	return d
}

func readZip(t *testing.T, path string) map[string][]byte {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer zr.Close()

	parts := make(map[string][]byte)
	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		parts[zf.Name] = data
	}
	return parts
}

func slideCount(t *testing.T, parts map[string][]byte) int {
	t.Helper()
	var pres presentationPart
	if err := xml.Unmarshal(parts["ppt/presentation.xml"], &pres); err != nil {
		t.Fatalf("parse presentation.xml: %v", err)
	}
	return len(pres.SlideIDs)
}

func TestWritePackageParts(t *testing.T) {
	dir := t.TempDir()
	images := slideImages(t, dir, 3)
	images[2].VideoURL = "https://drive.google.com/file/d/VID1/view"

	out := filepath.Join(dir, "deck.pptx")
	b := New(Config{Logger: quiet()})
	if err := b.Write(out, deckMeta(3, 0), images); err != nil {
		t.Fatalf("Write: %v", err)
	}

	parts := readZip(t, out)
	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"docProps/core.xml",
		"docProps/app.xml",
		"ppt/presentation.xml",
		"ppt/_rels/presentation.xml.rels",
		"ppt/slideMasters/slideMaster1.xml",
		"ppt/slideLayouts/slideLayout1.xml",
		"ppt/theme/theme1.xml",
		"ppt/slides/slide1.xml",
		"ppt/slides/slide3.xml",
		"ppt/slides/_rels/slide3.xml.rels",
		"ppt/media/gen1.png",
		"ppt/media/gen3.png",
	} {
		if _, ok := parts[name]; !ok {
			t.Errorf("missing part %s", name)
		}
	}

	if got := slideCount(t, parts); got != 3 {
		t.Errorf("presentation lists %d slides, want 3", got)
	}
	if !strings.Contains(string(parts["docProps/core.xml"]), "Dockside Monitoring") {
		t.Error("project name not in core properties")
	}
}

// A video slide carries the original URL both as a visible caption and as
// an external hyperlink relationship.
func TestWriteVideoSlideHyperlink(t *testing.T) {
	dir := t.TempDir()
	images := slideImages(t, dir, 2)
	images[1].VideoURL = "https://drive.google.com/file/d/VID1/view"

	out := filepath.Join(dir, "deck.pptx")
	b := New(Config{Logger: quiet()})
	if err := b.Write(out, deckMeta(2, 0), images); err != nil {
		t.Fatalf("Write: %v", err)
	}

	parts := readZip(t, out)

	var rels relationships
	if err := xml.Unmarshal(parts["ppt/slides/_rels/slide2.xml.rels"], &rels); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range rels.Rels {
		if r.Type == relTypeHyperlink {
			found = true
			if r.TargetMode != "External" {
				t.Error("hyperlink relationship not external")
			}
			if !strings.Contains(r.Target, "VID1") {
				t.Errorf("hyperlink target = %q", r.Target)
			}
		}
	}
	if !found {
		t.Fatal("no hyperlink relationship on the video slide")
	}
	if !bytes.Contains(parts["ppt/slides/slide2.xml"], []byte("Demo video")) {
		t.Error("caption text missing from slide xml")
	}
	if !bytes.Contains(parts["ppt/slides/slide1.xml"], []byte(`r:embed="rId2"`)) {
		t.Error("picture blip reference missing")
	}
}

func TestNormalizeDeployment(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Cloud", "cloud"},
		{"Fully cloud hosted", "cloud"},
		{"On-Premise", "on-premise"},
		{"onprem servers", "on-premise"},
		{"Hybrid (dashboard in cloud)", "hybrid"},
		{"Hybrid, training on-prem", "hybrid-training-on-prem"},
		{"hybrid-training-onprem", "hybrid-training-on-prem"},
		{"4G VPN bridge", "4g-vpn-bridge"},
		{"vimov", "vimov"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeDeployment(tt.in); got != tt.want {
			t.Errorf("NormalizeDeployment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Builds reference decks with the builder itself, then splices them into a
// generated deck: library 2-10 after the title, the architecture template
// after the diagram slide, library 11-25 at the end.
func TestWriteSplicesReferenceSlides(t *testing.T) {
	dir := t.TempDir()
	b := New(Config{Logger: quiet()})

	libPath := filepath.Join(dir, "library.pptx")
	if err := b.Write(libPath, deckMeta(25, 0), slideImages(t, filepath.Join(dir, "lib"), 25)); err != nil {
		t.Fatalf("write library deck: %v", err)
	}
	archPath := filepath.Join(dir, "arch.pptx")
	if err := b.Write(archPath, deckMeta(5, 0), slideImages(t, filepath.Join(dir, "arch"), 5)); err != nil {
		t.Fatalf("write architecture deck: %v", err)
	}

	spliced := New(Config{
		ArchitectureDeck: archPath,
		LibraryDeck:      libPath,
		DeploymentMethod: "Hybrid, AI training on-premise",
		Logger:           quiet(),
	})

	out := filepath.Join(dir, "final.pptx")
	genImages := slideImages(t, filepath.Join(dir, "gen"), 5)
	if err := spliced.Write(out, deckMeta(5, 4), genImages); err != nil {
		t.Fatalf("Write: %v", err)
	}

	parts := readZip(t, out)

	// 5 generated + 9 front + 1 architecture + 15 tail.
	if got := slideCount(t, parts); got != 30 {
		t.Fatalf("spliced deck has %d slides, want 30", got)
	}

	// Slide 2 is library slide 2 (media gen2.png renamed under the libf tag).
	if !bytes.Contains(parts["ppt/slides/_rels/slide2.xml.rels"], []byte("libf1_gen2.png")) {
		t.Errorf("slide 2 rels = %s", parts["ppt/slides/_rels/slide2.xml.rels"])
	}
	// Generated slides 2-5 sit at 11-13, the architecture template at 14.
	if !bytes.Contains(parts["ppt/slides/_rels/slide11.xml.rels"], []byte("gen2.png")) {
		t.Errorf("slide 11 rels = %s", parts["ppt/slides/_rels/slide11.xml.rels"])
	}
	if !bytes.Contains(parts["ppt/slides/_rels/slide14.xml.rels"], []byte("arch4_gen5.png")) {
		t.Errorf("slide 14 rels = %s", parts["ppt/slides/_rels/slide14.xml.rels"])
	}
	// Tail block starts right after the last generated slide.
	if !bytes.Contains(parts["ppt/slides/_rels/slide16.xml.rels"], []byte("libb10_gen11.png")) {
		t.Errorf("slide 16 rels = %s", parts["ppt/slides/_rels/slide16.xml.rels"])
	}
	if _, ok := parts["ppt/media/arch4_gen5.png"]; !ok {
		t.Error("architecture template media not copied")
	}
}

// An unknown deployment method skips the architecture splice but keeps the
// library blocks.
func TestWriteUnknownDeploymentSkipsArchitecture(t *testing.T) {
	dir := t.TempDir()
	b := New(Config{Logger: quiet()})

	archPath := filepath.Join(dir, "arch.pptx")
	if err := b.Write(archPath, deckMeta(5, 0), slideImages(t, filepath.Join(dir, "arch"), 5)); err != nil {
		t.Fatal(err)
	}

	spliced := New(Config{
		ArchitectureDeck: archPath,
		DeploymentMethod: "ViMOV edge bridge",
		Logger:           quiet(),
	})

	out := filepath.Join(dir, "final.pptx")
	if err := spliced.Write(out, deckMeta(3, 2), slideImages(t, filepath.Join(dir, "gen"), 3)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := slideCount(t, readZip(t, out)); got != 3 {
		t.Errorf("slides = %d, want 3 with no splice", got)
	}
}

func TestExportPDF(t *testing.T) {
	dir := t.TempDir()
	images := slideImages(t, dir, 2)

	b := New(Config{Logger: quiet()})
	out := filepath.Join(dir, "deck.pdf")
	if err := b.ExportPDF(out, []string{images[0].PNGPath, images[1].PNGPath}); err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("output is not a pdf")
	}
}

func TestExportPDFNoImages(t *testing.T) {
	b := New(Config{Logger: quiet()})
	if err := b.ExportPDF(filepath.Join(t.TempDir(), "x.pdf"), nil); err == nil {
		t.Fatal("expected error with no images")
	}
}
