package handbook

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"hrprag/internal/domain"
)

// Loader turns a handbook file into markdown. Markdown files are read
// as-is; PDFs are validated, optionally cropped, then converted by docling.
type Loader struct {
	docling    *DoclingClient
	cropTop    float64
	cropBottom float64
	logger     *slog.Logger
}

func NewLoader(docling *DoclingClient, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{docling: docling, logger: logger.With(slog.String("component", "handbook"))}
}

// WithCrop sets the header and footer heights, in points, removed before conversion.
func (l *Loader) WithCrop(top, bottom float64) *Loader {
	l.cropTop, l.cropBottom = top, bottom
	return l
}

func (l *Loader) Load(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: source file not found: %s", domain.ErrIngest, path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case ".pdf":
		return l.loadPDF(ctx, path)
	default:
		return "", fmt.Errorf("%w: unsupported handbook format %q", domain.ErrValidation, filepath.Ext(path))
	}
}

func (l *Loader) loadPDF(ctx context.Context, path string) (string, error) {
	info, err := Inspect(path)
	if err != nil {
		return "", err
	}
	if l.docling == nil {
		return "", fmt.Errorf("%w: ingest.docling_url is not set; convert the PDF to markdown first", domain.ErrConfig)
	}
	l.logger.Info("converting PDF", slog.String("path", path), slog.Int("pages", info.Pages))

	if l.cropTop > 0 || l.cropBottom > 0 {
		tmp, err := os.CreateTemp("", "hrp-handbook-*.pdf")
		if err != nil {
			return "", err
		}
		tmp.Close()
		defer os.Remove(tmp.Name())

		if err := CropHeaderFooter(path, tmp.Name(), l.cropTop, l.cropBottom); err != nil {
			return "", err
		}
		path = tmp.Name()
	}

	return l.docling.Convert(ctx, path)
}
