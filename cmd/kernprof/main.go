package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"kernprof-mcp/internal/analyzer"
	"kernprof-mcp/internal/config"
	"kernprof-mcp/internal/kernprof"
	"kernprof-mcp/internal/logging"
	"kernprof-mcp/internal/report"
)

var version = "1.0.0"

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	logLevel   string
	maxLines   int
	delimiter  string
	marker     string
	outputDir  string
	disabled   bool
}

// load merges the config file with any flags set on cmd.
func (o *options) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("max-lines") {
		cfg.MaxLines = o.maxLines
	}
	if flags.Changed("delimiter") {
		cfg.Delimiter = o.delimiter
	}
	if flags.Changed("marker") {
		cfg.Marker = o.marker
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = o.outputDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if o.disabled {
		cfg.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if err := logging.Init(cfg.LogLevel); err != nil {
		return cfg, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	return cfg, nil
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "kernprof",
		Short: "Clean and rank line profiler reports",
		Long: `kernprof post-processes the text output of a line profiler.

It splits the report into per-function blocks, drops functions that never
ran, sorts the rest by total time and prints a ranked summary.

Example:
  kernprof clean profile.lprof.txt
  python -m line_profiler out.lprof | kernprof summary -
  kernprof dump --output-dir reports profile.lprof.txt`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.IntVar(&opts.maxLines, "max-lines", 20, "number of summary lines")
	pf.StringVar(&opts.delimiter, "delimiter", "Total time: ", "line prefix that starts a block")
	pf.StringVar(&opts.marker, "marker", "Pystone time: ", "prefix written in front of each split block")
	pf.StringVar(&opts.outputDir, "output-dir", ".", "directory for dumped reports")
	pf.BoolVar(&opts.disabled, "disabled", false, "treat profiling as switched off")

	rootCmd.AddCommand(cleanCmd(opts))
	rootCmd.AddCommand(summaryCmd(opts))
	rootCmd.AddCommand(statsCmd(opts))
	rootCmd.AddCommand(dumpCmd(opts))
	rootCmd.AddCommand(exportCmd(opts))
	rootCmd.AddCommand(configCmd(opts))

	return rootCmd
}

// sourceFor returns the report named by arg; "-" reads stdin.
func sourceFor(cmd *cobra.Command, cfg config.Config, arg string) (kernprof.Source, error) {
	if !cfg.Enabled {
		return kernprof.Disabled{}, nil
	}
	if arg != "-" {
		return kernprof.FileSource{Path: arg}, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return kernprof.TextSource(data), nil
}

// cleanFromArgs loads config and runs the clean pass over args[0].
func cleanFromArgs(cmd *cobra.Command, opts *options, args []string) (*analyzer.Result, config.Config, error) {
	cfg, err := opts.load(cmd)
	if err != nil {
		return nil, cfg, err
	}
	src, err := sourceFor(cmd, cfg, args[0])
	if err != nil {
		return nil, cfg, err
	}
	res, err := analyzer.CleanSource(src, cfg.Kernprof())
	return res, cfg, err
}

// notProfiling prints the usage error and lets the command succeed.
func notProfiling(cmd *cobra.Command, err error) error {
	if errors.Is(err, kernprof.ErrProfilingDisabled) {
		fmt.Fprintln(cmd.OutOrStdout(), "profile is not on")
		return nil
	}
	return err
}

func cleanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clean <report|->",
		Short: "Print the cleaned report followed by the summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, _, err := cleanFromArgs(cmd, opts, args)
			if err != nil {
				return notProfiling(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Output+"\n"+res.Summary)
			return nil
		},
	}
}

func summaryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <report|->",
		Short: "Print the ranked summary only",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, _, err := cleanFromArgs(cmd, opts, args)
			if err != nil {
				return notProfiling(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Summary)
			return nil
		},
	}
}

func statsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <report|->",
		Short: "Print block statistics and detected issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, _, err := cleanFromArgs(cmd, opts, args)
			if err != nil {
				return notProfiling(cmd, err)
			}

			out := cmd.OutOrStdout()
			stats := analyzer.ComputeStatistics(res.Blocks)
			fmt.Fprintf(out, "Blocks:       %d\n", stats.TotalBlocks)
			fmt.Fprintf(out, "Timed:        %d\n", stats.TimedBlocks)
			fmt.Fprintf(out, "Unknown time: %d\n", stats.UnknownBlocks)
			fmt.Fprintf(out, "Zero time:    %d\n", stats.ZeroBlocks)
			fmt.Fprintf(out, "Total time:   %.6f s\n", stats.TotalTime)
			fmt.Fprintf(out, "Max time:     %.6f s\n", stats.MaxTime)
			fmt.Fprintf(out, "Mean time:    %.6f s\n", stats.MeanTime)

			issues := analyzer.DetectIssues(res.Blocks)
			if len(issues) > 0 {
				fmt.Fprintln(out, "\nIssues:")
				for _, issue := range issues {
					fmt.Fprintf(out, "  [%s] %s: %s\n", issue.Severity, issue.Category, issue.Description)
				}
			}
			return nil
		},
	}
}

func dumpCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <report|->",
		Short: "Write the cleaned report to <output-dir>/profile_output.txt and a timestamped copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if chart, _ := cmd.Flags().GetBool("chart"); chart {
				cfg.Chart = true
			}
			if pprof, _ := cmd.Flags().GetBool("pprof"); pprof {
				cfg.Pprof = true
			}

			src, err := sourceFor(cmd, cfg, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Dumping Profile Information")
			res, err := report.Dump(src, cfg, report.NewWriter(cfg))
			if err != nil {
				return notProfiling(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Summary)
			return nil
		},
	}
	cmd.Flags().Bool("chart", false, "also write an HTML chart of the summary")
	cmd.Flags().Bool("pprof", false, "also write a gzipped pprof profile")
	return cmd
}

func exportCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <report|->",
		Short: "Convert the timed blocks to a pprof profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				return fmt.Errorf("--output flag is required")
			}

			res, _, err := cleanFromArgs(cmd, opts, args)
			if err != nil {
				return notProfiling(cmd, err)
			}

			if err := writePprof(output, res.Blocks); err != nil {
				return err
			}
			logging.GlobalLogger.WithField("path", output).Info("pprof profile written")
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "output .pb.gz path")
	return cmd
}

// writePprof writes blocks to path as a gzipped profile, removing the file
// when writing or closing fails.
func writePprof(path string, blocks []kernprof.Block) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	return analyzer.ExportPprof(blocks, f)
}

func configCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			data, err := cfg.ToYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
