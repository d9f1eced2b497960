package commands

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/datalens/pkg/config"
	"github.com/Sumatoshi-tech/datalens/pkg/runner"
)

const (
	flagFormat    = "format"
	flagDelimiter = "delimiter"
	flagHeader    = "header"
	flagEncoding  = "encoding"
	flagChunkSize = "chunk-size"
	flagOutput    = "output"
)

// sourceFlags select how an input file is read. Unset flags fall back to the
// config file, then to detection.
type sourceFlags struct {
	format    string
	delimiter string
	encoding  string
	chunkSize string
	header    bool
}

func (f *sourceFlags) register(cmd *cobra.Command, withFormat bool) {
	if withFormat {
		cmd.Flags().StringVarP(&f.format, flagFormat, "f", "", "input format: csv, tsv, json, jsonl, json_array, parquet, avro, xlsx (default: detect)")
		cmd.Flags().StringVar(&f.encoding, flagEncoding, "", "text encoding: utf-8, utf-8-bom, windows-1252, iso-8859-1 (default: detect)")
	}

	cmd.Flags().StringVarP(&f.delimiter, flagDelimiter, "d", "", "field delimiter, e.g. , ; tab pipe (default: detect)")
	cmd.Flags().BoolVar(&f.header, flagHeader, true, "first delimited row holds column names")
	cmd.Flags().StringVar(&f.chunkSize, flagChunkSize, "", "read chunk size, e.g. 256KiB or 4MB (default: parser.chunk_size)")
}

func (f *sourceFlags) apply(cmd *cobra.Command, opts *runner.Options) error {
	opts.Format = f.format

	if f.encoding != "" {
		opts.Encoding = f.encoding
	}

	if f.delimiter != "" {
		delim, err := config.ParseDelimiter(f.delimiter)
		if err != nil {
			return err
		}

		opts.Delimiter = delim
	}

	if cmd.Flags().Changed(flagHeader) {
		opts.HasHeader = f.header
	}

	if f.chunkSize != "" {
		size, err := humanize.ParseBytes(f.chunkSize)
		if err != nil || size == 0 || size > math.MaxInt32 {
			return fmt.Errorf("%w: --%s=%q", config.ErrInvalidChunkSize, flagChunkSize, f.chunkSize)
		}

		opts.ChunkSize = int(size)
	}

	return nil
}

func addOutputFlag(cmd *cobra.Command, output *string) {
	cmd.Flags().StringVarP(output, flagOutput, "o", formatTable, "output format: table, json, yaml")
}
