package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Sumatoshi-tech/datalens/pkg/config"
	"github.com/Sumatoshi-tech/datalens/pkg/engine"
	"github.com/Sumatoshi-tech/datalens/pkg/observability"
	"github.com/Sumatoshi-tech/datalens/pkg/runner"
	"github.com/Sumatoshi-tech/datalens/pkg/version"
)

// env is the loaded configuration and telemetry of one command run.
type env struct {
	cfg       *config.Config
	providers observability.Providers
	profile   *observability.ProfileMetrics
	red       *observability.REDMetrics
	logger    *slog.Logger
}

// setup loads the config file and starts telemetry for the given mode.
func (g *Globals) setup(mode observability.AppMode) (*env, error) {
	cfg, err := config.LoadConfig(g.ConfigPath)
	if err != nil {
		return nil, err
	}

	obsCfg := cfg.ObservabilityConfig(mode, version.Version)
	applyOTLPEnv(&obsCfg)

	if g.Verbose {
		obsCfg.LogLevel = slog.LevelDebug
		obsCfg.DebugTrace = true
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	e := &env{cfg: cfg, providers: providers, logger: providers.Logger}

	e.profile, err = observability.NewProfileMetrics(providers.Meter)
	if err != nil {
		e.close()

		return nil, fmt.Errorf("profile metrics: %w", err)
	}

	e.red, err = observability.NewREDMetrics(providers.Meter)
	if err != nil {
		e.close()

		return nil, fmt.Errorf("red metrics: %w", err)
	}

	return e, nil
}

// applyOTLPEnv lets the standard OTEL_EXPORTER_OTLP_* variables override the
// config file.
func applyOTLPEnv(cfg *observability.Config) {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		cfg.OTLPEndpoint = endpoint
	}

	if headers := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); headers != "" {
		cfg.OTLPHeaders = observability.ParseOTLPHeaders(headers)
	}

	if os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true" {
		cfg.OTLPInsecure = true
	}
}

func (e *env) close() {
	err := e.providers.Shutdown(context.Background())
	if err != nil {
		e.logger.Warn("observability shutdown failed", "error", err)
	}
}

func (e *env) engineOptions() engine.Options {
	opts := e.cfg.EngineOptions()
	opts.Logger = e.logger
	opts.Tracer = e.providers.Tracer
	opts.Metrics = e.profile

	return opts
}

// runnerOptions returns runner options from the config file. Per-file source
// settings are left to detection and command flags.
func (e *env) runnerOptions() (runner.Options, error) {
	delim, err := e.cfg.Delimiter()
	if err != nil {
		return runner.Options{}, err
	}

	return runner.Options{
		Engine:      e.engineOptions(),
		Correlation: e.cfg.CorrelationOptions(),
		ChunkSize:   e.cfg.ChunkSize(),
		Delimiter:   delim,
		Encoding:    e.cfg.Parser.Encoding,
		HasHeader:   e.cfg.Parser.HasHeader,
		Logger:      e.logger,
	}, nil
}
