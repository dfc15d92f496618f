// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/secscan/isinscan/internal/evidence"
)

const rawResponseSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$defs": {
    "reply": {
      "type": "object",
      "anyOf": [{"required": ["raw_response"]}, {"required": ["extracted_text"]}],
      "properties": {
        "raw_response": {"type": "string"},
        "extracted_text": {"type": "string"},
        "numbers": {"type": "array"},
        "identifiers": {"type": "array"}
      }
    }
  },
  "anyOf": [
    {"$ref": "#/$defs/reply"},
    {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {"type": "object"}
    }
  ]
}`

// reJSONFence captures the body of a ```json fenced block in a model reply.
var reJSONFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// structuredReply is the JSON layout extraction services are asked to return.
type structuredReply struct {
	RawResponse   string            `json:"raw_response"`
	ExtractedText string            `json:"extracted_text"`
	Numbers       []json.RawMessage `json:"numbers"`
	Identifiers   []json.RawMessage `json:"identifiers"`
}

// RawResponseParser reads output from structured-extraction services. These
// report no geometry and no confidence, so every fragment is Unknown.
type RawResponseParser struct {
	schema *jsonschema.Schema
}

// NewRawResponseParser creates a new RawResponseParser.
func NewRawResponseParser() *RawResponseParser {
	return &RawResponseParser{schema: mustCompileSchema("raw_response.json", rawResponseSchema)}
}

func (p *RawResponseParser) Name() string {
	return "raw_response"
}

func (p *RawResponseParser) Shape() evidence.ArtifactShape {
	return evidence.ShapeRawResponse
}

// CanHandle returns true for a single reply or a map of section name to
// object in which at least one section is a reply. Sections holding anything
// else, such as a failed call's {"error": ...}, are skipped by Parse.
func (p *RawResponseParser) CanHandle(source evidence.ArtifactSource) bool {
	if !matches(p.schema, source.Document) {
		return false
	}
	doc := source.Document.(map[string]any)
	if isReply(doc) {
		return true
	}
	for _, v := range doc {
		if section, ok := v.(map[string]any); ok && isReply(section) {
			return true
		}
	}
	return false
}

func (p *RawResponseParser) Parse(_ context.Context, source evidence.ArtifactSource) ([]evidence.ResultSet, error) {
	doc, ok := source.Document.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected raw response document %T", source.Document)
	}

	if isReply(doc) {
		var reply structuredReply
		if err := json.Unmarshal(source.Content, &reply); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reply: %w", err)
		}
		return []evidence.ResultSet{p.resultSet(source.ID, "", reply)}, nil
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(source.Content, &sections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal section replies: %w", err)
	}
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]evidence.ResultSet, 0, len(names))
	for _, name := range names {
		section, _ := doc[name].(map[string]any)
		if !isReply(section) {
			sets = append(sets, skippedSection(source.ID, name, section))
			continue
		}
		var reply structuredReply
		if err := json.Unmarshal(sections[name], &reply); err != nil {
			sets = append(sets, evidence.ResultSet{
				SourceID: source.ID,
				Section:  name,
				Skipped:  fmt.Sprintf("unreadable reply: %v", err),
			})
			continue
		}
		sets = append(sets, p.resultSet(source.ID, name, reply))
	}
	return sets, nil
}

// skippedSection records a section that holds no reply. A failed extraction
// call leaves {"error": ...} behind.
func skippedSection(sourceID, name string, section map[string]any) evidence.ResultSet {
	reason := "no raw_response or extracted_text"
	if msg, ok := section["error"]; ok {
		reason = fmt.Sprintf("error: %v", msg)
	}
	return evidence.ResultSet{SourceID: sourceID, Section: name, Skipped: reason}
}

func isReply(doc map[string]any) bool {
	for _, key := range []string{"raw_response", "extracted_text"} {
		if _, ok := doc[key].(string); ok {
			return true
		}
	}
	return false
}

// resultSet splits a reply into line fragments. A fenced JSON body inside
// raw_response is unwrapped so its fields contribute as well.
func (p *RawResponseParser) resultSet(sourceID, section string, reply structuredReply) evidence.ResultSet {
	set := evidence.ResultSet{SourceID: sourceID, Section: section}
	add := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		set.Fragments = append(set.Fragments, evidence.TextFragment{
			Text:       text,
			Confidence: evidence.Unknown,
			SourceID:   sourceID,
			Section:    section,
		})
	}

	replies := []structuredReply{reply}
	if reply.RawResponse != "" {
		if m := reJSONFence.FindStringSubmatch(reply.RawResponse); m != nil {
			var inner structuredReply
			if err := json.Unmarshal([]byte(m[1]), &inner); err == nil {
				replies = append(replies, inner)
			}
		}
	}

	for _, r := range replies {
		for _, line := range strings.Split(r.RawResponse, "\n") {
			add(line)
		}
		for _, line := range strings.Split(r.ExtractedText, "\n") {
			add(line)
		}
		for _, v := range r.Numbers {
			add(scalarText(v))
		}
		for _, v := range r.Identifiers {
			add(scalarText(v))
		}
	}
	return set
}

// scalarText returns a JSON string's value or a JSON number's literal text,
// so 17550.00 stays "17550.00". Other values yield "".
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch c := raw[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case c == '-' || (c >= '0' && c <= '9'):
		if !json.Valid(raw) {
			return ""
		}
		return string(raw)
	default:
		return ""
	}
}
