// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/secscan/isinscan/internal/evidence"
	"github.com/secscan/isinscan/internal/scan"
	"github.com/secscan/isinscan/internal/summary"
)

// MetadataAggregateIdentifiers describes the aggregate_identifiers tool.
var MetadataAggregateIdentifiers = &mcp.Tool{
	Name: "aggregate_identifiers",
	Description: "Merge OCR and extraction result artifacts for one document into a single " +
		"summary of distinct numbers and validated 12-character security identifiers. " +
		"Supported artifact shapes: OCR fragment lists (optionally grouped by method), " +
		"raw extraction-service responses, and previously written summaries. " +
		"Missing or unreadable sources are skipped and listed under failures. " +
		"Loose and rejected candidates are advisory and never appear in the summary.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"sources", "output_path"},
		"properties": map[string]interface{}{
			"sources": map[string]interface{}{
				"type":        "array",
				"description": "Result artifacts to aggregate.",
				"items": map[string]interface{}{
					"type":     "object",
					"required": []string{"id", "path"},
					"properties": map[string]interface{}{
						"id":     map[string]interface{}{"type": "string", "description": "Unique source identifier used for provenance"},
						"path":   map[string]interface{}{"type": "string", "description": "Path to the artifact file"},
						"format": map[string]interface{}{"type": "string", "enum": []string{"", "json", "yaml"}, "description": "Encoding hint; auto-detected when omitted"},
					},
				},
			},
			"output_path": map[string]interface{}{
				"type":        "string",
				"description": "Where the summary JSON is written. An existing file is replaced.",
			},
			"report_path": map[string]interface{}{
				"type":        "string",
				"description": "Optional path for the advisory report.",
			},
			"require_checksum": map[string]interface{}{
				"type":        "boolean",
				"description": "Also reject identifiers whose ISIN check digit is wrong.",
			},
		},
	},
	// Kinds and confidences marshal as strings, which schema inference from
	// the Go types would reject.
	OutputSchema: map[string]interface{}{"type": "object"},
}

// InputAggregateIdentifiers is the input for the AggregateIdentifiers tool.
type InputAggregateIdentifiers struct {
	Sources         []evidence.Source `json:"sources"`
	OutputPath      string            `json:"output_path"`
	ReportPath      string            `json:"report_path"`
	RequireChecksum bool              `json:"require_checksum"`
}

// OutputAggregateIdentifiers is the output for the AggregateIdentifiers tool.
type OutputAggregateIdentifiers struct {
	RunID   string          `json:"run_id"`
	Summary summary.Summary `json:"summary"`
	// LooseCandidates are review-only identifier look-alikes.
	LooseCandidates []evidence.PoolEntry    `json:"loose_candidates"`
	Rejected        []evidence.Rejection    `json:"rejected"`
	Failures        []summary.SourceFailure `json:"failures"`
	Sources         []evidence.SourceStats  `json:"sources"`
}

// Aggregator serves the aggregate_identifiers tool with a fixed logger.
type Aggregator struct {
	logger zerolog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(logger zerolog.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// AggregateIdentifiers runs one aggregation and returns the written summary
// together with the advisory detail.
func (a *Aggregator) AggregateIdentifiers(ctx context.Context, _ *mcp.CallToolRequest, input InputAggregateIdentifiers) (*mcp.CallToolResult, OutputAggregateIdentifiers, error) {
	if len(input.Sources) == 0 {
		return nil, OutputAggregateIdentifiers{}, fmt.Errorf("at least one source is required")
	}
	if input.OutputPath == "" {
		return nil, OutputAggregateIdentifiers{}, fmt.Errorf("output_path is required")
	}
	seen := make(map[string]struct{}, len(input.Sources))
	for i, src := range input.Sources {
		if src.ID == "" || src.Path == "" {
			return nil, OutputAggregateIdentifiers{}, fmt.Errorf("sources[%d]: id and path are required", i)
		}
		if _, dup := seen[src.ID]; dup {
			return nil, OutputAggregateIdentifiers{}, fmt.Errorf("sources[%d]: duplicate id %q", i, src.ID)
		}
		seen[src.ID] = struct{}{}
	}

	result, err := scan.Run(ctx, scan.Options{
		Sources:         input.Sources,
		SummaryPath:     input.OutputPath,
		ReportPath:      input.ReportPath,
		RequireChecksum: input.RequireChecksum,
		Logger:          a.logger,
	})
	if err != nil {
		return nil, OutputAggregateIdentifiers{}, err
	}

	report := summary.NewReport(result.RunID, result.Summary, result.Validation, result.Aggregate)
	return nil, OutputAggregateIdentifiers{
		RunID:           result.RunID,
		Summary:         result.Summary,
		LooseCandidates: report.LooseCandidates,
		Rejected:        report.Rejected,
		Failures:        report.Failures,
		Sources:         report.Sources,
	}, nil
}
