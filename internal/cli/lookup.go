package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"hrprag/internal/domain"
)

var (
	lookupJSON   bool
	countSubpart string
)

var sectionCmd = &cobra.Command{
	Use:   "section <number>",
	Short: "Print every chunk of a section in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStack(ctx, GetConfig(), GetRootDir(), logger, false)
		if err != nil {
			return err
		}
		defer st.Close()

		chunks, err := st.retrieval().GetSection(ctx, args[0])
		if err != nil {
			return err
		}
		if lookupJSON {
			return printJSON(chunks)
		}

		fmt.Printf("%s  %s\n\n", chunks[0].Citation, chunks[0].Title)
		for _, c := range chunks {
			fmt.Printf("[%s]\n%s\n\n", c.ID, c.Content)
		}
		return nil
	},
}

var chunkCmd = &cobra.Command{
	Use:   "chunk <id>",
	Short: "Print one chunk by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStack(ctx, GetConfig(), GetRootDir(), logger, false)
		if err != nil {
			return err
		}
		defer st.Close()

		chunk, err := st.retrieval().GetChunk(ctx, args[0])
		if err != nil {
			return err
		}
		if lookupJSON {
			return printJSON(chunk)
		}
		fmt.Printf("%s  %s (chunk %d)\n\n%s\n", chunk.Citation, chunk.Title, chunk.ChunkIndex, chunk.Content)
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count stored chunks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var subpart *domain.Subpart
		if countSubpart != "" {
			sp, err := domain.ParseSubpart(countSubpart)
			if err != nil {
				return err
			}
			subpart = &sp
		}

		st, err := openStack(ctx, GetConfig(), GetRootDir(), logger, false)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.retrieval().Count(ctx, subpart)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored chunk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStack(ctx, GetConfig(), GetRootDir(), logger, true)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.store.DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
		fmt.Println("Index cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sectionCmd, chunkCmd, countCmd, clearCmd)
	sectionCmd.Flags().BoolVar(&lookupJSON, "json", false, "output as JSON")
	chunkCmd.Flags().BoolVar(&lookupJSON, "json", false, "output as JSON")
	countCmd.Flags().StringVar(&countSubpart, "subpart", "", "count only subpart a or b")
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}
