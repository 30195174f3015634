package deck

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ExportPDF writes a PDF rendition of the deck, one page per rendered slide
// image, pages sized to the slide canvas.
func (b *Builder) ExportPDF(outPath string, pngPaths []string) error {
	if len(pngPaths) == 0 {
		return fmt.Errorf("deck: no slide images to export")
	}

	// 960x540pt is the 16:9 canvas at PowerPoint's point scale.
	imp, err := pdfcpu.ParseImportDetails("dim:960 540, pos:full", types.POINTS)
	if err != nil {
		return fmt.Errorf("deck: pdf import config: %w", err)
	}

	if err := api.ImportImagesFile(pngPaths, outPath, imp, nil); err != nil {
		return fmt.Errorf("deck: export pdf %s: %w", outPath, err)
	}

	b.cfg.Logger.Info("pdf exported", "path", outPath, "pages", len(pngPaths))
	return nil
}
