package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/datalens/pkg/observability"
	"github.com/Sumatoshi-tech/datalens/pkg/protocol"
)

// NewWorkerCommand creates the stdio protocol worker command.
func NewWorkerCommand(globals *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Serve the line-delimited JSON protocol on stdio",
		Long: `Read one JSON request per line from stdin and write one JSON response per
line to stdout. Logs go to stderr.

Request types: start_session, process_chunk, finalize, detect_delimiter,
init_extractor, extract_chunk, finalize_extraction, compute_correlation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := globals.setup(observability.ModeWorker)
			if err != nil {
				return err
			}
			defer e.close()

			w, err := protocol.NewWorker(protocol.Options{
				Engine:      e.engineOptions(),
				Correlation: e.cfg.CorrelationOptions(),
				Logger:      e.logger,
				Tracer:      e.providers.Tracer,
				Metrics:     e.red,
			})
			if err != nil {
				return err
			}

			e.logger.InfoContext(cmd.Context(), "worker ready")

			return w.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
