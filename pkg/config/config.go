package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/datalens/pkg/correlation"
	"github.com/Sumatoshi-tech/datalens/pkg/engine"
	"github.com/Sumatoshi-tech/datalens/pkg/observability"
	"github.com/Sumatoshi-tech/datalens/pkg/parser"
	"github.com/Sumatoshi-tech/datalens/pkg/profile"
	"github.com/Sumatoshi-tech/datalens/pkg/safeconv"
)

// Config is the top-level configuration struct for datalens.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Profile     ProfileConfig     `mapstructure:"profile"`
	Parser      ParserConfig      `mapstructure:"parser"`
	Engine      EngineConfig      `mapstructure:"engine"`
	Correlation CorrelationConfig `mapstructure:"correlation"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// ProfileConfig bounds the per-column accumulators.
type ProfileConfig struct {
	TopK             int     `mapstructure:"top_k"`
	TopValues        int     `mapstructure:"top_values"`
	MaxRowIndices    int     `mapstructure:"max_row_indices"`
	SampleSize       int     `mapstructure:"sample_size"`
	QuantileSamples  int     `mapstructure:"quantile_samples"`
	MaxColumns       int     `mapstructure:"max_columns"`
	HLLPrecision     int     `mapstructure:"hll_precision"`
	OutlierSigma     float64 `mapstructure:"outlier_sigma"`
	OutlierMinValues int64   `mapstructure:"outlier_min_values"`
	DuplicateRows    int     `mapstructure:"duplicate_rows"`
	DuplicateFPRate  float64 `mapstructure:"duplicate_fp_rate"`
}

// ParserConfig holds input reading settings.
type ParserConfig struct {
	ChunkSize string `mapstructure:"chunk_size"`
	Delimiter string `mapstructure:"delimiter"`
	Encoding  string `mapstructure:"encoding"`
	MaxDepth  int    `mapstructure:"max_depth"`
	HasHeader bool   `mapstructure:"has_header"`
}

// EngineConfig holds session resource limits.
type EngineConfig struct {
	MaxBuffer    string `mapstructure:"max_buffer"`
	TraceVerbose bool   `mapstructure:"trace_verbose"`
}

// CorrelationConfig holds correlation batch limits.
type CorrelationConfig struct {
	MaxRows int `mapstructure:"max_rows"`
}

// ServerConfig holds HTTP host settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	MaxChunk     string        `mapstructure:"max_chunk"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	Port         int           `mapstructure:"port"`
	MaxSessions  int           `mapstructure:"max_sessions"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Environment  string  `mapstructure:"environment"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	Prometheus   bool    `mapstructure:"prometheus"`
}

const maxPort = 65535

// Sentinel errors for configuration validation.
var (
	// ErrInvalidProfile indicates profile bounds the accumulators cannot honor.
	ErrInvalidProfile = errors.New("invalid profile settings")
	// ErrInvalidSize indicates a humanized size that does not parse.
	ErrInvalidSize = errors.New("invalid size")
	// ErrInvalidChunkSize indicates parser.chunk_size is zero.
	ErrInvalidChunkSize = errors.New("parser.chunk_size must be positive")
	// ErrInvalidDelimiter indicates a delimiter longer than one byte.
	ErrInvalidDelimiter = errors.New("parser.delimiter must be a single byte")
	// ErrInvalidEncoding indicates an unsupported parser.encoding.
	ErrInvalidEncoding = errors.New("invalid parser.encoding")
	// ErrInvalidMaxDepth indicates a negative parser.max_depth.
	ErrInvalidMaxDepth = errors.New("parser.max_depth must be non-negative")
	// ErrInvalidMaxRows indicates a non-positive correlation.max_rows.
	ErrInvalidMaxRows = errors.New("correlation.max_rows must be positive")
	// ErrInvalidPort indicates a server port outside 1..65535.
	ErrInvalidPort = errors.New("invalid server port")
	// ErrInvalidMaxSessions indicates a non-positive server.max_sessions.
	ErrInvalidMaxSessions = errors.New("server.max_sessions must be positive")
	// ErrInvalidLogLevel indicates an unknown log.level.
	ErrInvalidLogLevel = errors.New("invalid log.level")
	// ErrInvalidSampleRatio indicates telemetry.sample_ratio outside 0..1.
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be between 0 and 1")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	err := c.validateProfile()
	if err != nil {
		return err
	}

	err = c.validateParser()
	if err != nil {
		return err
	}

	_, err = parseSize("engine.max_buffer", c.Engine.MaxBuffer)
	if err != nil {
		return err
	}

	if c.Correlation.MaxRows <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxRows, c.Correlation.MaxRows)
	}

	err = c.validateServer()
	if err != nil {
		return err
	}

	_, err = c.LogLevel()
	if err != nil {
		return err
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

func (c *Config) validateProfile() error {
	if c.Profile.HLLPrecision < 0 || c.Profile.HLLPrecision > math.MaxUint8 || c.Profile.DuplicateRows < 0 || c.Profile.OutlierMinValues < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, profile.ErrInvalidBound)
	}

	err := c.ProfileOptions().Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	return nil
}

func (c *Config) validateParser() error {
	size, err := parseSize("parser.chunk_size", c.Parser.ChunkSize)
	if err != nil {
		return err
	}

	if size == 0 {
		return ErrInvalidChunkSize
	}

	_, err = c.Delimiter()
	if err != nil {
		return err
	}

	_, err = parser.ParseEncoding(c.Parser.Encoding)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}

	if c.Parser.MaxDepth < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxDepth, c.Parser.MaxDepth)
	}

	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}

	if c.Server.MaxSessions <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxSessions, c.Server.MaxSessions)
	}

	_, err := parseSize("server.max_chunk", c.Server.MaxChunk)

	return err
}

// ProfileOptions converts the profile section into accumulator bounds.
func (c *Config) ProfileOptions() profile.Options {
	return profile.Options{
		TopKCapacity:     c.Profile.TopK,
		TopValues:        c.Profile.TopValues,
		MaxRowIndices:    c.Profile.MaxRowIndices,
		SampleSize:       c.Profile.SampleSize,
		QuantileSamples:  c.Profile.QuantileSamples,
		MaxColumns:       c.Profile.MaxColumns,
		HLLPrecision:     safeconv.MustIntToUint8(c.Profile.HLLPrecision),
		OutlierSigma:     c.Profile.OutlierSigma,
		OutlierMinValues: c.Profile.OutlierMinValues,
		DuplicateRows:    safeconv.MustIntToUint(c.Profile.DuplicateRows),
		DuplicateFPRate:  c.Profile.DuplicateFPRate,
	}
}

// EngineOptions converts the profile, parser, and engine sections into
// engine options. Logger, tracer, and metrics are left to the host.
func (c *Config) EngineOptions() engine.Options {
	profileOpts := c.ProfileOptions()
	maxBuffer, _ := parseSize("engine.max_buffer", c.Engine.MaxBuffer)

	return engine.Options{
		Profile:        &profileOpts,
		MaxBufferBytes: maxBuffer,
		MaxDepth:       c.Parser.MaxDepth,
	}
}

// ChunkSize returns parser.chunk_size in bytes, capped at math.MaxInt32.
func (c *Config) ChunkSize() int {
	size, _ := parseSize("parser.chunk_size", c.Parser.ChunkSize)

	return int(min(size, math.MaxInt32))
}

// MaxChunkBytes returns server.max_chunk in bytes. Zero means unlimited.
func (c *Config) MaxChunkBytes() int64 {
	size, _ := parseSize("server.max_chunk", c.Server.MaxChunk)

	return size
}

// Delimiter returns parser.delimiter as a byte. Zero means auto-detect.
// The names "tab", "\t", "comma", "semicolon", and "pipe" are accepted.
func (c *Config) Delimiter() (byte, error) {
	return ParseDelimiter(c.Parser.Delimiter)
}

// ParseDelimiter converts a delimiter name or single character into a byte.
// The empty string yields zero.
func ParseDelimiter(raw string) (byte, error) {
	switch strings.ToLower(raw) {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}

	if len(raw) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDelimiter, raw)
	}

	return raw[0], nil
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.Log.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}

	return level, nil
}

// CorrelationOptions converts the correlation section.
func (c *Config) CorrelationOptions() correlation.Options {
	return correlation.Options{MaxRows: c.Correlation.MaxRows}
}

// ObservabilityConfig builds the telemetry settings for the given host mode.
// The Prometheus exporter is only attached for the HTTP host.
func (c *Config) ObservabilityConfig(mode observability.AppMode, version string) observability.Config {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Environment = c.Telemetry.Environment
	cfg.Mode = mode
	cfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	cfg.OTLPInsecure = c.Telemetry.OTLPInsecure
	cfg.Prometheus = c.Telemetry.Prometheus && mode == observability.ModeServe
	cfg.SampleRatio = c.Telemetry.SampleRatio
	cfg.TraceVerbose = c.Engine.TraceVerbose
	cfg.LogJSON = c.Log.JSON

	level, err := c.LogLevel()
	if err == nil {
		cfg.LogLevel = level
	}

	return cfg
}

func parseSize(key, raw string) (int64, error) {
	size, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %w", ErrInvalidSize, key, raw, err)
	}

	n, err := safeconv.Uint64ToInt64(size)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %w", ErrInvalidSize, key, raw, err)
	}

	return n, nil
}
