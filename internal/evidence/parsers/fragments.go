// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/secscan/isinscan/internal/evidence"
)

const fragmentsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$defs": {
    "fragment": {
      "type": "object",
      "required": ["text"],
      "properties": {
        "text": {"type": "string"},
        "confidence": {"type": ["number", "null"]}
      }
    },
    "fragmentList": {"type": "array", "items": {"$ref": "#/$defs/fragment"}},
    "method": {
      "type": "object",
      "anyOf": [{"required": ["details"]}, {"required": ["text"]}],
      "properties": {
        "text": {"type": "string"},
        "confidence": {"type": ["number", "null"]},
        "details": {"$ref": "#/$defs/fragmentList"}
      }
    }
  },
  "anyOf": [
    {"$ref": "#/$defs/fragmentList"},
    {
      "type": "object",
      "required": ["fragments"],
      "properties": {"fragments": {"$ref": "#/$defs/fragmentList"}}
    },
    {
      "type": "object",
      "required": ["details"],
      "properties": {"details": {"$ref": "#/$defs/fragmentList"}}
    },
    {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {"$ref": "#/$defs/method"}
    }
  ]
}`

// ocrFragment is one {text, confidence, location} triple as OCR engines write it.
type ocrFragment struct {
	Text       string          `json:"text"`
	Confidence *float64        `json:"confidence"`
	BBox       json.RawMessage `json:"bbox"`
	Location   json.RawMessage `json:"location"`
}

// ocrMethod is one preprocessing variant in a multi-method result file.
type ocrMethod struct {
	Text       string        `json:"text"`
	Confidence *float64      `json:"confidence"`
	Details    []ocrFragment `json:"details"`
}

// FragmentsParser reads direct OCR output: a list of text/confidence/location
// triples, optionally grouped by the preprocessing method that produced them.
type FragmentsParser struct {
	schema *jsonschema.Schema
}

// NewFragmentsParser creates a new FragmentsParser.
func NewFragmentsParser() *FragmentsParser {
	return &FragmentsParser{schema: mustCompileSchema("fragments.json", fragmentsSchema)}
}

func (p *FragmentsParser) Name() string {
	return "ocr_fragments"
}

func (p *FragmentsParser) Shape() evidence.ArtifactShape {
	return evidence.ShapeFragments
}

// CanHandle returns true for artifacts matching one of the fragment layouts.
func (p *FragmentsParser) CanHandle(source evidence.ArtifactSource) bool {
	return matches(p.schema, source.Document)
}

// Parse yields one result set per method, or a single set for flat lists.
// Methods are emitted in name order.
func (p *FragmentsParser) Parse(_ context.Context, source evidence.ArtifactSource) ([]evidence.ResultSet, error) {
	switch doc := source.Document.(type) {
	case []any:
		var list []ocrFragment
		if err := json.Unmarshal(source.Content, &list); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fragment list: %w", err)
		}
		return []evidence.ResultSet{p.resultSet(source.ID, "", list)}, nil

	case map[string]any:
		for _, key := range []string{"fragments", "details"} {
			if _, ok := doc[key].([]any); !ok {
				continue
			}
			var wrapped map[string]json.RawMessage
			if err := json.Unmarshal(source.Content, &wrapped); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fragment wrapper: %w", err)
			}
			var list []ocrFragment
			if err := json.Unmarshal(wrapped[key], &list); err != nil {
				return nil, fmt.Errorf("failed to unmarshal %s: %w", key, err)
			}
			return []evidence.ResultSet{p.resultSet(source.ID, "", list)}, nil
		}

		var methods map[string]ocrMethod
		if err := json.Unmarshal(source.Content, &methods); err != nil {
			return nil, fmt.Errorf("failed to unmarshal method map: %w", err)
		}
		names := make([]string, 0, len(methods))
		for name := range methods {
			names = append(names, name)
		}
		sort.Strings(names)

		sets := make([]evidence.ResultSet, 0, len(names))
		for _, name := range names {
			m := methods[name]
			if len(m.Details) == 0 && m.Text != "" {
				// Only the joined text survived; it carries the method's mean confidence.
				m.Details = []ocrFragment{{Text: m.Text, Confidence: m.Confidence}}
			}
			sets = append(sets, p.resultSet(source.ID, name, m.Details))
		}
		return sets, nil
	}
	return nil, fmt.Errorf("unexpected fragment document %T", source.Document)
}

func (p *FragmentsParser) resultSet(sourceID, section string, list []ocrFragment) evidence.ResultSet {
	set := evidence.ResultSet{SourceID: sourceID, Section: section}
	for _, f := range list {
		conf := evidence.Unknown
		if f.Confidence != nil {
			conf = evidence.NewConfidence(*f.Confidence)
		}
		loc := f.Location
		if len(loc) == 0 {
			loc = f.BBox
		}
		set.Fragments = append(set.Fragments, evidence.TextFragment{
			Text:       f.Text,
			Confidence: conf,
			Location:   loc,
			SourceID:   sourceID,
			Section:    section,
		})
	}
	return set
}
