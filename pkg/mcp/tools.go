package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/datalens/pkg/config"
	"github.com/Sumatoshi-tech/datalens/pkg/runner"
)

// Tool name constants.
const (
	ToolNameProfile   = "profile_file"
	ToolNameDetect    = "detect_format"
	ToolNameExtract   = "extract_rows"
	ToolNameCorrelate = "correlate"
)

// MaxExtractRows caps the rows one extract_rows call may request.
const MaxExtractRows = 1000

// Sentinel errors for tool input validation.
var (
	// ErrEmptyPath indicates the path parameter is empty.
	ErrEmptyPath = errors.New("path parameter is required and must not be empty")
	// ErrPathNotAbsolute indicates the path is not absolute.
	ErrPathNotAbsolute = errors.New("path must be an absolute path")
	// ErrNoRows indicates an extract_rows call without rows.
	ErrNoRows = errors.New("rows parameter is required and must not be empty")
	// ErrTooManyRows indicates an extract_rows call over MaxExtractRows.
	ErrTooManyRows = errors.New("too many rows requested")
	// ErrNoColumns indicates a correlate call without columns.
	ErrNoColumns = errors.New("columns parameter is required and must not be empty")
)

// Input types (auto-generate JSON schemas via struct tags).

// ProfileInput is the input schema for the profile_file tool.
type ProfileInput struct {
	Path      string `json:"path"                 jsonschema:"absolute path to a local data file"`
	Format    string `json:"format,omitempty"     jsonschema:"csv, tsv, json, jsonl, json_array, parquet, avro or xlsx (default: detect)"`
	Delimiter string `json:"delimiter,omitempty"  jsonschema:"field delimiter for delimited text, e.g. , ; tab pipe (default: detect)"`
	HasHeader *bool  `json:"has_header,omitempty" jsonschema:"whether the first delimited row holds column names (default: true)"`
	Encoding  string `json:"encoding,omitempty"   jsonschema:"utf-8, utf-8-bom, windows-1252 or iso-8859-1 (default: detect)"`
}

// DetectInput is the input schema for the detect_format tool.
type DetectInput struct {
	Path string `json:"path" jsonschema:"absolute path to a local data file"`
}

// ExtractInput is the input schema for the extract_rows tool.
type ExtractInput struct {
	Path      string  `json:"path"                 jsonschema:"absolute path to a local delimited file"`
	Rows      []int64 `json:"rows"                 jsonschema:"0-based data row indices, not counting the header"`
	Delimiter string  `json:"delimiter,omitempty"  jsonschema:"field delimiter (default: detect)"`
	HasHeader *bool   `json:"has_header,omitempty" jsonschema:"whether the first row holds column names (default: true)"`
	Encoding  string  `json:"encoding,omitempty"   jsonschema:"utf-8, utf-8-bom, windows-1252 or iso-8859-1 (default: detect)"`
}

// CorrelateInput is the input schema for the correlate tool.
type CorrelateInput struct {
	Path      string   `json:"path"                 jsonschema:"absolute path to a local delimited file"`
	Columns   []string `json:"columns"              jsonschema:"numeric columns to correlate, by header name or 0-based index"`
	Delimiter string   `json:"delimiter,omitempty"  jsonschema:"field delimiter (default: detect)"`
	HasHeader *bool    `json:"has_header,omitempty" jsonschema:"whether the first row holds column names (default: true)"`
	Encoding  string   `json:"encoding,omitempty"   jsonschema:"utf-8, utf-8-bom, windows-1252 or iso-8859-1 (default: detect)"`
	MaxRows   int      `json:"max_rows,omitempty"   jsonschema:"maximum number of data rows to read (default: 10000)"`
}

// sourceInput is the part of a tool input that selects how a file is read.
type sourceInput struct {
	path      string
	format    string
	delimiter string
	hasHeader *bool
	encoding  string
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleProfile(ctx context.Context, _ *mcpsdk.CallToolRequest, input ProfileInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	r, err := s.runner(sourceInput{
		path:      input.Path,
		format:    input.Format,
		delimiter: input.Delimiter,
		hasHeader: input.HasHeader,
		encoding:  input.Encoding,
	})
	if err != nil {
		return errorResult(err)
	}

	res, err := r.Profile(ctx, input.Path)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(res)
}

func (s *Server) handleDetect(_ context.Context, _ *mcpsdk.CallToolRequest, input DetectInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validatePath(input.Path)
	if err != nil {
		return errorResult(err)
	}

	det, err := runner.New(s.base).Detect(input.Path)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(det)
}

func (s *Server) handleExtract(ctx context.Context, _ *mcpsdk.CallToolRequest, input ExtractInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	switch {
	case len(input.Rows) == 0:
		return errorResult(ErrNoRows)
	case len(input.Rows) > MaxExtractRows:
		return errorResult(fmt.Errorf("%w: %d (max %d)", ErrTooManyRows, len(input.Rows), MaxExtractRows))
	}

	r, err := s.runner(sourceInput{
		path:      input.Path,
		delimiter: input.Delimiter,
		hasHeader: input.HasHeader,
		encoding:  input.Encoding,
	})
	if err != nil {
		return errorResult(err)
	}

	rows, err := r.Extract(ctx, input.Path, input.Rows)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(rows)
}

func (s *Server) handleCorrelate(ctx context.Context, _ *mcpsdk.CallToolRequest, input CorrelateInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if len(input.Columns) == 0 {
		return errorResult(ErrNoColumns)
	}

	in := sourceInput{
		path:      input.Path,
		delimiter: input.Delimiter,
		hasHeader: input.HasHeader,
		encoding:  input.Encoding,
	}

	r, err := s.runner(in, func(opts *runner.Options) {
		if input.MaxRows > 0 {
			opts.Correlation.MaxRows = input.MaxRows
		}
	})
	if err != nil {
		return errorResult(err)
	}

	m, err := r.Correlate(ctx, input.Path, input.Columns)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(m)
}

// runner validates in and returns a Runner configured by it.
func (s *Server) runner(in sourceInput, adjust ...func(*runner.Options)) (*runner.Runner, error) {
	err := validatePath(in.path)
	if err != nil {
		return nil, err
	}

	delim, err := config.ParseDelimiter(in.delimiter)
	if err != nil {
		return nil, err
	}

	opts := s.base
	opts.Format = in.format
	opts.Delimiter = delim
	opts.Encoding = in.encoding
	opts.HasHeader = in.hasHeader == nil || *in.hasHeader

	for _, fn := range adjust {
		fn(&opts)
	}

	return runner.New(opts), nil
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func validatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %s", ErrPathNotAbsolute, path)
	}

	return nil
}
