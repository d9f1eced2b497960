// Package config loads datalens settings from .datalens.yaml, DATALENS_*
// environment variables, and built-in defaults.
package config

import (
	"github.com/Sumatoshi-tech/datalens/pkg/alg/hll"
	"github.com/Sumatoshi-tech/datalens/pkg/correlation"
	"github.com/Sumatoshi-tech/datalens/pkg/profile"
)

// Profile defaults.
const (
	DefaultProfileTopK             = profile.DefaultTopKCapacity
	DefaultProfileTopValues        = profile.DefaultTopValues
	DefaultProfileMaxRowIndices    = profile.DefaultMaxRowIndices
	DefaultProfileSampleSize       = profile.DefaultSampleSize
	DefaultProfileQuantileSamples  = profile.DefaultQuantileSamples
	DefaultProfileMaxColumns       = profile.DefaultMaxColumns
	DefaultProfileHLLPrecision     = hll.DefaultPrecision
	DefaultProfileOutlierSigma     = profile.DefaultOutlierSigma
	DefaultProfileOutlierMinValues = profile.DefaultOutlierMinValues
	DefaultProfileDuplicateRows    = profile.DefaultDuplicateRows
	DefaultProfileDuplicateFPRate  = profile.DefaultDuplicateFPRate
)

// Parser defaults.
const (
	DefaultParserChunkSize = "1MiB"
	DefaultParserDelimiter = ""
	DefaultParserHasHeader = true
	DefaultParserEncoding  = ""
	DefaultParserMaxDepth  = 5
)

// Engine defaults.
const (
	DefaultEngineMaxBuffer    = "512MiB"
	DefaultEngineTraceVerbose = false
)

// Correlation defaults.
const (
	DefaultCorrelationMaxRows = correlation.DefaultMaxRows
)

// Server defaults.
const (
	DefaultServerHost         = "127.0.0.1"
	DefaultServerPort         = 8080
	DefaultServerReadTimeout  = "30s"
	DefaultServerWriteTimeout = "60s"
	DefaultServerIdleTimeout  = "120s"
	DefaultServerMaxSessions  = 64
	DefaultServerMaxChunk     = "64MiB"
	DefaultServerSessionTTL   = "15m"
)

// Log defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Telemetry defaults.
const (
	DefaultTelemetryEnvironment = ""
	DefaultTelemetryEndpoint    = ""
	DefaultTelemetryInsecure    = false
	DefaultTelemetryPrometheus  = true
	DefaultTelemetrySampleRatio = 1.0
)
