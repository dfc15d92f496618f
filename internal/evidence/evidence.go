// SPDX-License-Identifier: Apache-2.0

// Package evidence turns OCR result artifacts into a deduplicated, validated
// pool of identifier and number candidates.
package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/secscan/isinscan/internal/pattern"
)

// Confidence is an OCR confidence score in [0,1], or Unknown.
type Confidence float64

// Unknown marks a fragment whose producer reported no confidence. It is
// distinct from every valid score.
const Unknown Confidence = -1

// NewConfidence converts a reported score. Percent-scale scores (as emitted by
// tesseract) are rescaled; NaN and values outside [0,100] become Unknown.
func NewConfidence(v float64) Confidence {
	switch {
	case math.IsNaN(v) || v < 0:
		return Unknown
	case v <= 1:
		return Confidence(v)
	case v <= 100:
		return Confidence(v / 100)
	default:
		return Unknown
	}
}

// Known reports whether c is a real score.
func (c Confidence) Known() bool { return c >= 0 }

// Less orders Unknown below every known score.
func (c Confidence) Less(o Confidence) bool {
	if !c.Known() {
		return o.Known()
	}
	return o.Known() && c < o
}

func (c Confidence) String() string {
	if !c.Known() {
		return "unknown"
	}
	return strconv.FormatFloat(float64(c), 'f', -1, 64)
}

// MarshalJSON writes unknown confidence as the string "unknown".
func (c Confidence) MarshalJSON() ([]byte, error) {
	if !c.Known() {
		return []byte(`"unknown"`), nil
	}
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a number, null or "unknown".
func (c *Confidence) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "null", `"unknown"`:
		*c = Unknown
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("confidence: %w", err)
	}
	*c = NewConfidence(v)
	return nil
}

// TextFragment is one span reported by an OCR run.
type TextFragment struct {
	Text       string
	Confidence Confidence
	// Location is the engine's bounding geometry, carried through unexamined.
	Location json.RawMessage
	SourceID string
	// Section names the method, preprocessing variant or document region
	// inside a multi-part artifact. Empty for single-run artifacts.
	Section string
}

// SourceRef identifies the run that produced the fragment.
func (f TextFragment) SourceRef() string {
	if f.Section == "" {
		return f.SourceID
	}
	return f.SourceID + "/" + f.Section
}

// ResultSet is the ordered fragments of one OCR run.
type ResultSet struct {
	SourceID  string
	Section   string
	Fragments []TextFragment
	// Skipped is set, with the reason, when the section held no usable
	// result. The rest of the artifact is still used.
	Skipped string
}

// Candidate is one classified interpretation of a fragment.
type Candidate struct {
	RawText        string       `json:"raw_text"`
	NormalizedText string       `json:"normalized_text"`
	Kind           pattern.Kind `json:"kind"`
	Confidence     Confidence   `json:"confidence"`
	SourceID       string       `json:"source_id"`
}

// ArtifactShape tags the on-disk layout of a result artifact.
type ArtifactShape int

const (
	// ShapeFragments is direct OCR output: text/confidence/location triples.
	ShapeFragments ArtifactShape = iota + 1
	// ShapeRawResponse is free-form text from a structured-extraction service.
	ShapeRawResponse
	// ShapeSummary is a previously produced numbers/identifiers summary.
	ShapeSummary
)

func (s ArtifactShape) String() string {
	switch s {
	case ShapeFragments:
		return "fragments"
	case ShapeRawResponse:
		return "raw_response"
	case ShapeSummary:
		return "summary"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// Source is a caller-configured artifact to aggregate.
type Source struct {
	ID   string `json:"id" yaml:"id"`
	Path string `json:"path" yaml:"path"`
	// Format is an optional encoding hint: "json", "yaml" or empty for auto.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// ArtifactSource is a loaded artifact handed to the parsers.
type ArtifactSource struct {
	ID   string
	Path string
	// Content is the artifact as JSON, after any YAML conversion.
	Content []byte
	// Document is Content decoded into generic JSON values.
	Document any
}

// ArtifactParser normalizes one artifact shape into result sets.
type ArtifactParser interface {
	Shape() ArtifactShape
	CanHandle(source ArtifactSource) bool
	Parse(ctx context.Context, source ArtifactSource) ([]ResultSet, error)
	Name() string
}
