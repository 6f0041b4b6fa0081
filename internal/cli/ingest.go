package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"hrprag/config"
	"hrprag/internal/adapter/ecfr"
	"hrprag/internal/adapter/fs"
	"hrprag/internal/adapter/handbook"
	"hrprag/internal/domain"
	"hrprag/internal/port"
	"hrprag/internal/usecase"
)

var (
	ingestSource     string
	ingestClear      bool
	ingestPart       string
	ingestDownload   bool
	ingestCropTop    float64
	ingestCropBottom float64
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk, embed and store a source document",
}

var ingestECFRCmd = &cobra.Command{
	Use:   "ecfr",
	Short: "Ingest a 10 CFR part from eCFR XML",
	Long: `Ingest one part of 10 CFR. Without --source the latest title 10 XML is
fetched from the eCFR API; --download also keeps a copy under .hrprag/regulations.

Examples:
  hrprag ingest ecfr --download --clear
  hrprag ingest ecfr --part 710 --source data/title-10.xml
  hrprag ingest ecfr --source data/regulations/`,
	Args: cobra.NoArgs,
	RunE: runIngestECFR,
}

var ingestHandbookCmd = &cobra.Command{
	Use:   "handbook",
	Short: "Ingest the DOE HRP handbook from markdown or PDF",
	Long: `Ingest the HRP handbook. Markdown is split at headers; PDFs are converted
through the docling service configured as ingest.docling_url.

Examples:
  hrprag ingest handbook --source data/handbook.md
  hrprag ingest handbook --source data/handbook.pdf --crop-top 40 --crop-bottom 30`,
	Args: cobra.NoArgs,
	RunE: runIngestHandbook,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestECFRCmd, ingestHandbookCmd)

	ingestCmd.PersistentFlags().BoolVar(&ingestClear, "clear", false, "delete every stored chunk before ingesting")

	ingestECFRCmd.Flags().StringVarP(&ingestSource, "source", "s", "", "XML file or directory (default: fetch from eCFR)")
	ingestECFRCmd.Flags().StringVar(&ingestPart, "part", "712", "CFR part to ingest (707, 710 or 712)")
	ingestECFRCmd.Flags().BoolVar(&ingestDownload, "download", false, "download from eCFR and keep the XML")

	ingestHandbookCmd.Flags().StringVarP(&ingestSource, "source", "s", "", "markdown or PDF file, or a directory of them")
	ingestHandbookCmd.Flags().Float64Var(&ingestCropTop, "crop-top", 0, "PDF header height to crop, in points")
	ingestHandbookCmd.Flags().Float64Var(&ingestCropBottom, "crop-bottom", 0, "PDF footer height to crop, in points")
	ingestHandbookCmd.MarkFlagRequired("source")
}

func runIngestECFR(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	part, err := ecfr.LookupPart(ingestPart)
	if err != nil {
		return err
	}

	var docs []string
	switch {
	case ingestSource != "":
		docs, err = readSources(ingestSource, cfg, ".xml", ".txt")
	case ingestDownload:
		client := ecfr.NewClient(cfg.Ingest.ECFRBaseURL, 0)
		dir := filepath.Join(GetRootDir(), config.DataDirName, "regulations")
		fmt.Printf("Downloading title 10 from %s...\n", cfg.Ingest.ECFRBaseURL)
		var path string
		if path, err = client.Download(ctx, dir, part); err == nil {
			fmt.Printf("Saved to %s\n", path)
			docs, err = readSources(path, cfg, ".xml")
		}
	default:
		fmt.Printf("Fetching title 10 from %s...\n", cfg.Ingest.ECFRBaseURL)
		var raw string
		if raw, err = ecfr.NewClient(cfg.Ingest.ECFRBaseURL, 0).FetchTitle(ctx); err == nil {
			docs = []string{raw}
		}
	}
	if err != nil {
		return err
	}

	sections, err := parseAll(ecfr.NewPartParser(part, logger), docs)
	if err != nil {
		return err
	}
	fmt.Printf("Parsed %d sections of 10 CFR %s\n", len(sections), part.Number)
	return ingestSections(ctx, sections)
}

func runIngestHandbook(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	var docling *handbook.DoclingClient
	if cfg.Ingest.DoclingURL != "" {
		docling = handbook.NewDoclingClient(cfg.Ingest.DoclingURL, 0)
	}
	loader := handbook.NewLoader(docling, logger).WithCrop(ingestCropTop, ingestCropBottom)

	paths, err := sourcePaths(ingestSource, cfg, ".md", ".markdown", ".txt", ".pdf")
	if err != nil {
		return err
	}
	docs := make([]string, 0, len(paths))
	for _, path := range paths {
		text, err := loader.Load(ctx, path)
		if err != nil {
			return err
		}
		docs = append(docs, text)
	}

	sections, err := parseAll(handbook.MarkdownParser{}, docs)
	if err != nil {
		return err
	}
	fmt.Printf("Parsed %d handbook sections\n", len(sections))
	return ingestSections(ctx, sections)
}

// sourcePaths resolves a file or directory into the files with one of exts.
func sourcePaths(source string, cfg *config.Config, exts ...string) ([]string, error) {
	if _, err := os.Stat(source); err != nil {
		return nil, fmt.Errorf("%w: source not found: %s", domain.ErrIngest, source)
	}

	files, err := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes).Walk(source)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Path))
		for _, want := range exts {
			if ext == want {
				paths = append(paths, f.Path)
				break
			}
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no %s files under %s", domain.ErrIngest, strings.Join(exts, "/"), source)
	}
	return paths, nil
}

func readSources(source string, cfg *config.Config, exts ...string) ([]string, error) {
	paths, err := sourcePaths(source, cfg, exts...)
	if err != nil {
		return nil, err
	}
	docs := make([]string, 0, len(paths))
	for _, path := range paths {
		text, err := fs.ReadFile(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, text)
	}
	return docs, nil
}

// parseAll parses every document and concatenates the sections in order.
func parseAll(parser port.SectionParser, docs []string) ([]port.Section, error) {
	var sections []port.Section
	for _, doc := range docs {
		parsed, err := parser.Parse(doc)
		if err != nil {
			return nil, err
		}
		sections = append(sections, parsed...)
	}
	return sections, nil
}

func ingestSections(ctx context.Context, sections []port.Section) error {
	cfg := GetConfig()

	st, err := openStack(ctx, cfg, GetRootDir(), logger, true)
	if err != nil {
		return err
	}
	defer st.Close()

	if ingestClear {
		fmt.Println("Clearing existing index...")
		if err := st.store.DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
	}

	ingester, err := st.ingester()
	if err != nil {
		return err
	}

	result, err := ingester.Ingest(ctx, sections, newProgress("Embedding"))
	printIngestResult(result)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if err := st.recordConfig(); err != nil {
		return fmt.Errorf("failed to update schema info: %w", err)
	}
	return nil
}

func printIngestResult(result *usecase.IngestResult) {
	if result == nil {
		return
	}
	fmt.Printf("\nIngestion complete (run %s):\n", result.RunID)
	fmt.Printf("  Sections ingested: %d\n", result.SectionsIngested)
	fmt.Printf("  Chunks created:    %d\n", result.ChunksCreated)
	fmt.Printf("  Chunks stored:     %d\n", result.ChunksStored)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, e := range result.Errors {
			if i == 10 {
				fmt.Printf("  ... and %d more\n", len(result.Errors)-10)
				break
			}
			fmt.Printf("  - %s\n", e)
		}
	}
}

// newProgress returns a ProgressFunc drawing a bar with an ETA. The bar
// is created lazily once the total is known.
func newProgress(label string) usecase.ProgressFunc {
	var (
		bar       *progressbar.ProgressBar
		mu        sync.Mutex
		startTime time.Time
	)

	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+label+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(done)

		if done > 0 && done < total {
			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", label, formatDuration(eta)))
			}
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
