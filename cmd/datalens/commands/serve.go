package commands

import (
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/datalens/pkg/httpapi"
	"github.com/Sumatoshi-tech/datalens/pkg/observability"
)

// NewServeCommand creates the HTTP server command.
func NewServeCommand(globals *Globals) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve profiling sessions over HTTP",
		Long: `Start the HTTP host. Each session owns one profiling engine:

  POST   /v1/sessions               create a session
  POST   /v1/sessions/{id}/chunks   feed the request body as the next chunk
  POST   /v1/sessions/{id}/finalize finalize and return the profile
  DELETE /v1/sessions/{id}          discard a session
  POST   /v1/detect                 detect format of the request body
  POST   /v1/correlate              correlate a row batch

Health probes are served at /healthz and /readyz, Prometheus metrics at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := globals.setup(observability.ModeServe)
			if err != nil {
				return err
			}
			defer e.close()

			if cmd.Flags().Changed("host") {
				e.cfg.Server.Host = host
			}

			if cmd.Flags().Changed("port") {
				e.cfg.Server.Port = port
			}

			srv := httpapi.New(httpapi.Options{
				Engine:         e.engineOptions(),
				Correlation:    e.cfg.CorrelationOptions(),
				MaxSessions:    e.cfg.Server.MaxSessions,
				SessionTTL:     e.cfg.Server.SessionTTL,
				MaxChunkBytes:  e.cfg.MaxChunkBytes(),
				ReadTimeout:    e.cfg.Server.ReadTimeout,
				WriteTimeout:   e.cfg.Server.WriteTimeout,
				IdleTimeout:    e.cfg.Server.IdleTimeout,
				Logger:         e.logger,
				Tracer:         e.providers.Tracer,
				RED:            e.red,
				MetricsHandler: e.providers.MetricsHandler,
			})

			addr := net.JoinHostPort(e.cfg.Server.Host, strconv.Itoa(e.cfg.Server.Port))

			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default: server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: server.port)")

	return cmd
}
