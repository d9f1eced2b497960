package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".datalens"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for datalens settings.
const envPrefix = "DATALENS"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	return decode(viperCfg)
}

// Default returns the configuration used when no file or env var is set.
func Default() *Config {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	cfg, err := decode(viperCfg)
	if err != nil {
		panic(fmt.Sprintf("config: built-in defaults are invalid: %v", err))
	}

	return cfg
}

func decode(viperCfg *viper.Viper) (*Config, error) {
	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("profile.top_k", DefaultProfileTopK)
	viperCfg.SetDefault("profile.top_values", DefaultProfileTopValues)
	viperCfg.SetDefault("profile.max_row_indices", DefaultProfileMaxRowIndices)
	viperCfg.SetDefault("profile.sample_size", DefaultProfileSampleSize)
	viperCfg.SetDefault("profile.quantile_samples", DefaultProfileQuantileSamples)
	viperCfg.SetDefault("profile.max_columns", DefaultProfileMaxColumns)
	viperCfg.SetDefault("profile.hll_precision", DefaultProfileHLLPrecision)
	viperCfg.SetDefault("profile.outlier_sigma", DefaultProfileOutlierSigma)
	viperCfg.SetDefault("profile.outlier_min_values", DefaultProfileOutlierMinValues)
	viperCfg.SetDefault("profile.duplicate_rows", DefaultProfileDuplicateRows)
	viperCfg.SetDefault("profile.duplicate_fp_rate", DefaultProfileDuplicateFPRate)

	viperCfg.SetDefault("parser.chunk_size", DefaultParserChunkSize)
	viperCfg.SetDefault("parser.delimiter", DefaultParserDelimiter)
	viperCfg.SetDefault("parser.has_header", DefaultParserHasHeader)
	viperCfg.SetDefault("parser.encoding", DefaultParserEncoding)
	viperCfg.SetDefault("parser.max_depth", DefaultParserMaxDepth)

	viperCfg.SetDefault("engine.max_buffer", DefaultEngineMaxBuffer)
	viperCfg.SetDefault("engine.trace_verbose", DefaultEngineTraceVerbose)

	viperCfg.SetDefault("correlation.max_rows", DefaultCorrelationMaxRows)

	viperCfg.SetDefault("server.host", DefaultServerHost)
	viperCfg.SetDefault("server.port", DefaultServerPort)
	viperCfg.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	viperCfg.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	viperCfg.SetDefault("server.idle_timeout", DefaultServerIdleTimeout)
	viperCfg.SetDefault("server.session_ttl", DefaultServerSessionTTL)
	viperCfg.SetDefault("server.max_sessions", DefaultServerMaxSessions)
	viperCfg.SetDefault("server.max_chunk", DefaultServerMaxChunk)

	viperCfg.SetDefault("log.level", DefaultLogLevel)
	viperCfg.SetDefault("log.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.environment", DefaultTelemetryEnvironment)
	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultTelemetryEndpoint)
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultTelemetryInsecure)
	viperCfg.SetDefault("telemetry.prometheus", DefaultTelemetryPrometheus)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultTelemetrySampleRatio)
}
