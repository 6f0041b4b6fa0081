package handbook

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"hrprag/internal/domain"
)

// PDFInfo is what ingestion needs to know about a handbook PDF before
// sending it for conversion.
type PDFInfo struct {
	Path  string
	Pages int
}

// Inspect validates the PDF and counts its pages.
func Inspect(path string) (*PDFInfo, error) {
	conf := model.NewDefaultConfiguration()
	if err := api.ValidateFile(path, conf); err != nil {
		return nil, fmt.Errorf("%w: invalid PDF %s: %v", domain.ErrIngest, path, err)
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: count pages of %s: %v", domain.ErrIngest, path, err)
	}
	return &PDFInfo{Path: path, Pages: pages}, nil
}

// CropHeaderFooter trims top and bottom points from every page so running
// headers and page numbers do not end up in the converted text.
func CropHeaderFooter(inputPath, outputPath string, top, bottom float64) error {
	conf := model.NewDefaultConfiguration()

	box, err := model.ParseBox(fmt.Sprintf("%.2f 0 %.2f 0", top, bottom), types.POINTS)
	if err != nil {
		return fmt.Errorf("failed to parse crop box: %w", err)
	}

	if err := api.CropFile(inputPath, outputPath, []string{"1-"}, box, conf); err != nil {
		return fmt.Errorf("%w: failed to crop PDF: %v", domain.ErrIngest, err)
	}
	return nil
}
