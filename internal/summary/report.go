// SPDX-License-Identifier: Apache-2.0

package summary

import (
	"encoding/json"
	"fmt"

	"github.com/secscan/isinscan/internal/evidence"
	"github.com/secscan/isinscan/internal/pattern"
)

// ReportIdentifier is a validated identifier with its evidence.
type ReportIdentifier struct {
	evidence.PoolEntry
	ChecksumValid bool `json:"checksum_valid"`
}

// SourceFailure is a skipped source as it appears in the report.
type SourceFailure struct {
	SourceID string `json:"source_id"`
	Path     string `json:"path"`
	Reason   string `json:"reason"`
	Error    string `json:"error"`
}

// Report is the advisory companion to a Summary: confidence, provenance,
// review candidates and source failures. It is never an input to the summary.
type Report struct {
	RunID       string             `json:"run_id"`
	Summary     Summary            `json:"summary"`
	Identifiers []ReportIdentifier `json:"identifiers"`
	// UnknownConfidence lists identifiers no source gave a confidence for.
	UnknownConfidence []string               `json:"unknown_confidence"`
	LooseCandidates   []evidence.PoolEntry   `json:"loose_candidates"`
	Rejected          []evidence.Rejection   `json:"rejected"`
	Numbers           []evidence.PoolEntry   `json:"numbers"`
	Sources           []evidence.SourceStats `json:"sources"`
	Failures          []SourceFailure        `json:"failures"`
}

// NewReport assembles the advisory report for one run.
func NewReport(runID string, s Summary, v evidence.Validation, agg evidence.AggregateResult) Report {
	r := Report{
		RunID:             runID,
		Summary:           s,
		Identifiers:       make([]ReportIdentifier, 0, len(v.Identifiers)),
		UnknownConfidence: UnknownConfidence(v),
		LooseCandidates:   nonNil(v.Loose),
		Rejected:          v.Rejected,
		Numbers:           nonNil(v.Numbers),
		Sources:           agg.Sources,
		Failures:          make([]SourceFailure, 0, len(agg.Failures)),
	}
	if r.Rejected == nil {
		r.Rejected = []evidence.Rejection{}
	}
	if r.Sources == nil {
		r.Sources = []evidence.SourceStats{}
	}
	for _, e := range v.Identifiers {
		r.Identifiers = append(r.Identifiers, ReportIdentifier{
			PoolEntry:     e,
			ChecksumValid: pattern.ValidCheckDigit(e.Text),
		})
	}
	for _, f := range agg.Failures {
		r.Failures = append(r.Failures, SourceFailure{
			SourceID: f.SourceID,
			Path:     f.Path,
			Reason:   f.Reason(),
			Error:    f.Err.Error(),
		})
	}
	return r
}

// UnknownConfidence returns the validated identifiers whose confidence is
// Unknown, in sorted order.
func UnknownConfidence(v evidence.Validation) []string {
	out := make([]string, 0)
	for _, e := range v.Identifiers {
		if !e.Confidence.Known() {
			out = append(out, e.Text)
		}
	}
	return out
}

// WriteReport persists r as indented JSON, replacing any file at path.
func WriteReport(path string, r Report) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFileAtomic(path, append(b, '\n'))
}

func nonNil(entries []evidence.PoolEntry) []evidence.PoolEntry {
	if entries == nil {
		return []evidence.PoolEntry{}
	}
	return entries
}
