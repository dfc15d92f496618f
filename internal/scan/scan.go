// SPDX-License-Identifier: Apache-2.0

// Package scan runs one end-to-end aggregation: load every source, merge and
// validate the candidates, then persist the summary and optional report.
package scan

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/secscan/isinscan/internal/evidence"
	"github.com/secscan/isinscan/internal/evidence/parsers"
	"github.com/secscan/isinscan/internal/summary"
)

// Options configures a Run.
type Options struct {
	Sources []evidence.Source
	// SummaryPath is required. ReportPath is optional.
	SummaryPath     string
	ReportPath      string
	RequireChecksum bool
	Workers         int
	Logger          zerolog.Logger
}

// Result is everything a run produced.
type Result struct {
	RunID      string
	Summary    summary.Summary
	Validation evidence.Validation
	Aggregate  evidence.AggregateResult
}

// DefaultPipeline builds a Pipeline with all default parsers registered.
func DefaultPipeline() *evidence.Pipeline {
	return evidence.NewPipeline(parsers.Default()...)
}

// Run aggregates opts.Sources and writes the summary. Source failures are
// reported in the result; only a context or write failure returns an error.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.SummaryPath == "" {
		return Result{}, fmt.Errorf("summary path is required")
	}

	runID := uuid.NewString()
	logger := opts.Logger.With().Str("run_id", runID).Logger()

	pipeline := DefaultPipeline().WithLogger(logger).WithWorkers(opts.Workers)
	logger.Debug().
		Strs("parsers", pipeline.RegisteredParsers()).
		Int("sources", len(opts.Sources)).
		Msg("starting run")

	agg, err := pipeline.Aggregate(ctx, opts.Sources)
	if err != nil {
		return Result{}, fmt.Errorf("aggregate sources: %w", err)
	}

	validation := evidence.NewValidator(evidence.ValidatorConfig{
		RequireChecksum: opts.RequireChecksum,
	}).Validate(agg.Pool)
	for _, r := range validation.Rejected {
		logger.Warn().
			Str("candidate", r.Text).
			Str("reason", string(r.Reason)).
			Strs("sources", r.Sources).
			Msg("identifier rejected")
	}

	s := summary.Build(validation)
	result := Result{RunID: runID, Summary: s, Validation: validation, Aggregate: agg}

	if err := summary.Write(opts.SummaryPath, s); err != nil {
		return result, fmt.Errorf("write summary: %w", err)
	}
	if opts.ReportPath != "" {
		report := summary.NewReport(runID, s, validation, agg)
		if err := summary.WriteReport(opts.ReportPath, report); err != nil {
			return result, fmt.Errorf("write report: %w", err)
		}
	}

	logger.Info().
		Int("total_numbers_found", s.TotalNumbersFound).
		Int("total_identifiers_found", s.TotalIdentifiersFound).
		Int("failed_sources", len(agg.Failures)).
		Str("summary_path", opts.SummaryPath).
		Msg("run complete")
	return result, nil
}
