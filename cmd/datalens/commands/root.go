// Package commands implements CLI command handlers for datalens.
package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/datalens/pkg/version"
)

// Globals holds the persistent flags shared by every command.
type Globals struct {
	ConfigPath string
	Verbose    bool
	NoColor    bool
}

// NewRootCommand builds the datalens command tree.
func NewRootCommand() *cobra.Command {
	globals := &Globals{}

	rootCmd := &cobra.Command{
		Use:   "datalens",
		Short: "Datalens - streaming data profiler",
		Long: `Datalens profiles tabular and structured data in a single streaming pass.

Commands:
  profile    Profile a local file
  detect     Detect format, delimiter, encoding and compression
  extract    Print selected rows of a delimited file
  correlate  Correlate numeric columns of a delimited file
  worker     Serve the line-delimited JSON protocol on stdio
  serve      Serve profiling sessions over HTTP
  mcp        Start the MCP server for AI agent integration`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if globals.NoColor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&globals.ConfigPath, "config", "c", "", "config file (default: .datalens.yaml in cwd or home)")
	rootCmd.PersistentFlags().BoolVarP(&globals.Verbose, "verbose", "v", false, "debug logging and full trace sampling")
	rootCmd.PersistentFlags().BoolVar(&globals.NoColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		NewProfileCommand(globals),
		NewDetectCommand(globals),
		NewExtractCommand(globals),
		NewCorrelateCommand(globals),
		NewWorkerCommand(globals),
		NewServeCommand(globals),
		NewMCPCommand(globals),
		newVersionCommand(),
	)

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "datalens %s\n", version.String())
		},
	}
}
