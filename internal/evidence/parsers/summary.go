// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/secscan/isinscan/internal/evidence"
)

const summarySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "anyOf": [{"required": ["ids"]}, {"required": ["identifiers"]}],
  "not": {"anyOf": [{"required": ["extracted_text"]}, {"required": ["raw_response"]}]},
  "properties": {
    "numbers": {"type": "array", "items": {"type": ["string", "number"]}},
    "ids": {"type": "array", "items": {"type": "string"}},
    "identifiers": {"type": "array", "items": {"type": "string"}}
  }
}`

// priorSummary covers both the per-script summary ({numbers, ids}) and the
// consolidated one ({numbers, identifiers}).
type priorSummary struct {
	Numbers     []json.RawMessage `json:"numbers"`
	IDs         []string          `json:"ids"`
	Identifiers []string          `json:"identifiers"`
}

// SummaryParser re-ingests a summary written by an earlier extraction run so
// its values can be merged with fresh OCR output. Summaries keep no
// confidence, so every fragment is Unknown.
type SummaryParser struct {
	schema *jsonschema.Schema
}

// NewSummaryParser creates a new SummaryParser.
func NewSummaryParser() *SummaryParser {
	return &SummaryParser{schema: mustCompileSchema("summary.json", summarySchema)}
}

func (p *SummaryParser) Name() string {
	return "summary"
}

func (p *SummaryParser) Shape() evidence.ArtifactShape {
	return evidence.ShapeSummary
}

func (p *SummaryParser) CanHandle(source evidence.ArtifactSource) bool {
	return matches(p.schema, source.Document)
}

// Parse emits one fragment per listed value, split into "identifiers" and
// "numbers" sections.
func (p *SummaryParser) Parse(_ context.Context, source evidence.ArtifactSource) ([]evidence.ResultSet, error) {
	var s priorSummary
	if err := json.Unmarshal(source.Content, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}

	ids := evidence.ResultSet{SourceID: source.ID, Section: "identifiers"}
	for _, v := range append(s.IDs, s.Identifiers...) {
		ids.Fragments = append(ids.Fragments, p.fragment(source.ID, ids.Section, v))
	}

	numbers := evidence.ResultSet{SourceID: source.ID, Section: "numbers"}
	for _, v := range s.Numbers {
		if text := scalarText(v); text != "" {
			numbers.Fragments = append(numbers.Fragments, p.fragment(source.ID, numbers.Section, text))
		}
	}
	return []evidence.ResultSet{ids, numbers}, nil
}

func (p *SummaryParser) fragment(sourceID, section, text string) evidence.TextFragment {
	return evidence.TextFragment{
		Text:       text,
		Confidence: evidence.Unknown,
		SourceID:   sourceID,
		Section:    section,
	}
}
