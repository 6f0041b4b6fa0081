package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"hrprag/internal/domain"
	"hrprag/internal/usecase"
)

var (
	queryText    string
	queryLimit   int
	queryJSON    bool
	querySubpart string
	querySection string
	querySource  string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search the indexed regulations",
	Long: `Search for the regulation passages most similar to a question.

Examples:
  hrprag query -q "random drug testing"
  hrprag query -q "psychologist evaluation" --subpart b -k 5 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().StringVar(&querySubpart, "subpart", "", "restrict to subpart a or b of 10 CFR 712")
	queryCmd.Flags().StringVar(&querySection, "section", "", "restrict to one section, e.g. 712.15")
	queryCmd.Flags().StringVar(&querySource, "source", "", "restrict to one source, e.g. 10cfr712 or hrp_handbook")
	queryCmd.MarkFlagRequired("query")
}

func queryFilter() (domain.SearchFilter, error) {
	filter := domain.SearchFilter{Section: querySection}
	if querySubpart != "" {
		sp, err := domain.ParseSubpart(querySubpart)
		if err != nil {
			return filter, err
		}
		filter.Subpart = &sp
	}
	if querySource != "" {
		src, err := domain.ParseSource(querySource)
		if err != nil {
			return filter, err
		}
		filter.Source = &src
	}
	return filter, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	filter, err := queryFilter()
	if err != nil {
		return err
	}

	st, err := openStack(ctx, cfg, GetRootDir(), logger, false)
	if err != nil {
		return err
	}
	defer st.Close()

	limit := usecase.ClampLimit(queryLimit, cfg.Retrieve.DefaultLimit, cfg.Retrieve.MaxLimit)
	results, err := st.retrieval().Search(ctx, queryText, filter, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found. Run 'hrprag ingest' if the index is empty.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Printf("--- [%d] %s %s (score: %.3f) ---\n", i+1, r.Chunk.Citation, r.Chunk.Title, r.Score)
		text := r.Chunk.Content
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}
	return nil
}
