package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/datalens/pkg/mcp"
	"github.com/Sumatoshi-tech/datalens/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(globals *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes datalens as tools that AI agents can discover and invoke:
  - profile_file: profile a local data file
  - detect_format: detect format, delimiter, encoding and compression
  - extract_rows: fetch selected rows of a delimited file
  - correlate: correlate numeric columns of a delimited file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := globals.setup(observability.ModeMCP)
			if err != nil {
				return err
			}
			defer e.close()

			opts, err := e.runnerOptions()
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Runner:  opts,
				Logger:  e.logger,
				Metrics: e.red,
				Tracer:  e.providers.Tracer,
			})

			return srv.Run(cmd.Context())
		},
	}
}
