package commands

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/datalens/pkg/engine"
	"github.com/Sumatoshi-tech/datalens/pkg/observability"
	"github.com/Sumatoshi-tech/datalens/pkg/runner"
	"github.com/Sumatoshi-tech/datalens/pkg/safeconv"
)

// NewProfileCommand creates the profile command.
func NewProfileCommand(globals *Globals) *cobra.Command {
	var (
		src    sourceFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "profile <file>",
		Short: "Profile a local data file",
		Long: `Stream a file through the profiler and print per-column statistics,
inferred types, quality scores and dataset-level issues.

Compressed inputs (.gz, .bz2, .zst, .xz, .lz4) are decompressed on the fly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := validateOutput(output)
			if err != nil {
				return err
			}

			e, err := globals.setup(observability.ModeCLI)
			if err != nil {
				return err
			}
			defer e.close()

			opts, err := e.runnerOptions()
			if err != nil {
				return err
			}

			err = src.apply(cmd, &opts)
			if err != nil {
				return err
			}

			opts.OnProgress = func(outcome *engine.ChunkOutcome, bytesRead int64) {
				e.logger.DebugContext(cmd.Context(), "chunk processed",
					"rows", humanize.Comma(outcome.TotalRows),
					"read", humanize.Bytes(safeconv.NonNegative(bytesRead)),
					"buffered", humanize.Bytes(safeconv.NonNegative(outcome.BufferedBytes)),
				)
			}

			res, err := runner.New(opts).Profile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), output, res)
		},
	}

	src.register(cmd, true)
	addOutputFlag(cmd, &output)

	return cmd
}

// NewDetectCommand creates the detect command.
func NewDetectCommand(globals *Globals) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "detect <file>",
		Short: "Detect format, delimiter, encoding and compression of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := validateOutput(output)
			if err != nil {
				return err
			}

			e, err := globals.setup(observability.ModeCLI)
			if err != nil {
				return err
			}
			defer e.close()

			det, err := runner.New(runner.Options{Logger: e.logger}).Detect(args[0])
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), output, det)
		},
	}

	addOutputFlag(cmd, &output)

	return cmd
}

// NewExtractCommand creates the extract command.
func NewExtractCommand(globals *Globals) *cobra.Command {
	var (
		src    sourceFlags
		rows   []int64
		output string
	)

	cmd := &cobra.Command{
		Use:   "extract <file> --rows 0,42",
		Short: "Print selected 0-based data rows of a delimited file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := validateOutput(output)
			if err != nil {
				return err
			}

			e, err := globals.setup(observability.ModeCLI)
			if err != nil {
				return err
			}
			defer e.close()

			opts, err := e.runnerOptions()
			if err != nil {
				return err
			}

			err = src.apply(cmd, &opts)
			if err != nil {
				return err
			}

			found, err := runner.New(opts).Extract(cmd.Context(), args[0], rows)
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), output, found)
		},
	}

	src.register(cmd, false)
	cmd.Flags().Int64SliceVar(&rows, "rows", nil, "comma-separated 0-based data row indices")
	_ = cmd.MarkFlagRequired("rows")
	addOutputFlag(cmd, &output)

	return cmd
}

// NewCorrelateCommand creates the correlate command.
func NewCorrelateCommand(globals *Globals) *cobra.Command {
	var (
		src     sourceFlags
		columns []string
		maxRows int
		output  string
	)

	cmd := &cobra.Command{
		Use:   "correlate <file> --columns a,b,c",
		Short: "Correlate numeric columns of a delimited file",
		Long: `Compute the Pearson correlation matrix of the given columns over the first
rows of a delimited file. Columns are header names or 0-based indices.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := validateOutput(output)
			if err != nil {
				return err
			}

			e, err := globals.setup(observability.ModeCLI)
			if err != nil {
				return err
			}
			defer e.close()

			opts, err := e.runnerOptions()
			if err != nil {
				return err
			}

			err = src.apply(cmd, &opts)
			if err != nil {
				return err
			}

			if maxRows > 0 {
				opts.Correlation.MaxRows = maxRows
			}

			m, err := runner.New(opts).Correlate(cmd.Context(), args[0], columns)
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), output, m)
		},
	}

	src.register(cmd, false)
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "comma-separated column names or 0-based indices")
	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "rows to read (default: correlation.max_rows)")
	_ = cmd.MarkFlagRequired("columns")
	addOutputFlag(cmd, &output)

	return cmd
}
