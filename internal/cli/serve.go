package cli

import (
	"github.com/spf13/cobra"

	"hrprag/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve search and lookups over HTTP",
	Long: `Start the HTTP API on server.addr (or --addr).

Routes:
  GET  /check/healthy
  POST /api/v1/search          {"query": "...", "limit": 5, "subpart": "subpart_a"}
  GET  /api/v1/sections/:section
  GET  /api/v1/chunks/:id
  GET  /api/v1/count?subpart=a`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := GetConfig()

		st, err := openStack(ctx, cfg, GetRootDir(), logger, false)
		if err != nil {
			return err
		}
		defer st.Close()

		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		svc := st.retrieval()
		handler := httpapi.NewRegulationHandler(st.searcher(svc), svc, httpapi.Limits{
			Default: cfg.Retrieve.DefaultLimit,
			Max:     cfg.Retrieve.MaxLimit,
		})
		return httpapi.NewServer(addr, handler, logger).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}
