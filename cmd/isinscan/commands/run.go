// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/secscan/isinscan/internal/config"
	"github.com/secscan/isinscan/internal/observability"
	"github.com/secscan/isinscan/internal/scan"
	"github.com/secscan/isinscan/internal/summary"
)

type runOptions struct {
	sources         []string
	out             string
	report          string
	requireChecksum bool
	workers         int
	logLevel        string
	logFormat       string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Aggregate result artifacts into a summary",
		Long: `Load every configured result artifact, merge the candidates they contain and
write the summary. Sources come from the manifest (--config) and from
repeated --source id=path[@format] flags. Missing or malformed sources are
skipped and reported; the run still succeeds if the summary is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.sources, "source", "s", nil, "result artifact as id=path[@format] (repeatable)")
	f.StringVarP(&opts.out, "out", "o", "", "summary output path (default "+config.DefaultSummaryPath+")")
	f.StringVar(&opts.report, "report", "", "optional advisory report output path")
	f.BoolVar(&opts.requireChecksum, "require-checksum", false, "also reject identifiers with a wrong check digit")
	f.IntVar(&opts.workers, "workers", 0, "sources processed in parallel")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&opts.logFormat, "log-format", "", "log format (console, json)")
	return cmd
}

func runRun(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	cfg, err := config.Load(root.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("out") {
		cfg.Output.Summary = opts.out
	}
	if flags.Changed("report") {
		cfg.Output.Report = opts.report
	}
	if flags.Changed("require-checksum") {
		cfg.Validation.RequireChecksum = opts.requireChecksum
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if root.verbose {
		cfg.Log.Level = "debug"
	}
	for _, s := range opts.sources {
		src, err := config.ParseSource(s)
		if err != nil {
			return err
		}
		cfg.Sources = append(cfg.Sources, src)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cmd.ErrOrStderr(),
		ServiceName: "isinscan",
	})
	if len(cfg.Sources) == 0 {
		logger.Warn().Msg("no sources configured; writing an empty summary")
	}

	result, err := scan.Run(cmd.Context(), scan.Options{
		Sources:         cfg.Sources,
		SummaryPath:     cfg.Output.Summary,
		ReportPath:      cfg.Output.Report,
		RequireChecksum: cfg.Validation.RequireChecksum,
		Workers:         cfg.Workers,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	color.New(color.FgGreen).Fprintln(out, summary.CompletionLine(result.Summary))
	if unknown := summary.UnknownConfidence(result.Validation); len(unknown) > 0 {
		color.New(color.FgYellow).Fprintf(out, "confidence unknown for: %s\n", strings.Join(unknown, ", "))
	}
	if n := len(result.Aggregate.Failures); n > 0 {
		color.New(color.FgYellow).Fprintf(out, "skipped %d of %d sources\n", n, len(cfg.Sources))
	}
	return nil
}
