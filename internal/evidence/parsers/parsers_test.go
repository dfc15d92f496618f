// SPDX-License-Identifier: Apache-2.0

package parsers_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secscan/isinscan/internal/evidence"
	"github.com/secscan/isinscan/internal/evidence/parsers"
)

func artifact(t *testing.T, content string) evidence.ArtifactSource {
	t.Helper()
	var doc any
	require.NoError(t, json.Unmarshal([]byte(content), &doc))
	return evidence.ArtifactSource{ID: "src", Path: "src.json", Content: []byte(content), Document: doc}
}

func fragmentTexts(sets []evidence.ResultSet) map[string][]string {
	out := make(map[string][]string)
	for _, s := range sets {
		for _, f := range s.Fragments {
			out[s.Section] = append(out[s.Section], f.Text)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Detection
// ---------------------------------------------------------------------------

func TestDefault_Detection(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string // empty means no parser
	}{
		{name: "fragment list", content: `[{"text": "a", "confidence": 0.5}]`, want: "ocr_fragments"},
		{name: "empty list", content: `[]`, want: "ocr_fragments"},
		{name: "fragments wrapper", content: `{"fragments": [{"text": "a"}]}`, want: "ocr_fragments"},
		{name: "details wrapper", content: `{"method": "x", "text": "a", "details": [{"text": "a"}]}`, want: "ocr_fragments"},
		{name: "method map", content: `{"enhanced": {"text": "a", "confidence": 0.5}}`, want: "ocr_fragments"},
		{name: "raw response", content: `{"raw_response": "a"}`, want: "raw_response"},
		{name: "parsed reply", content: `{"extracted_text": "a", "numbers": ["1"]}`, want: "raw_response"},
		{name: "raw response sections", content: `{"page_1": {"raw_response": "a"}}`, want: "raw_response"},
		{name: "sections with a failed call", content: `{"top_left": {"extracted_text": "a"}, "top_right": {"error": "timeout"}}`, want: "raw_response"},
		{name: "only failed sections", content: `{"top_right": {"error": "timeout"}}`},
		{name: "per-script summary", content: `{"numbers": ["1"], "ids": []}`, want: "summary"},
		{name: "consolidated summary", content: `{"total_numbers_found": 0, "numbers": [], "identifiers": []}`, want: "summary"},
		{name: "fragment without text", content: `[{"confidence": 0.5}]`},
		{name: "scalar", content: `"US0378331005"`},
		{name: "unrelated object", content: `{"pages": 3}`},
		{name: "empty object", content: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := artifact(t, tt.content)
			got := ""
			for _, p := range parsers.Default() {
				if p.CanHandle(src) {
					got = p.Name()
					break
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefault_Shapes(t *testing.T) {
	var shapes []evidence.ArtifactShape
	for _, p := range parsers.Default() {
		shapes = append(shapes, p.Shape())
	}
	assert.Equal(t, []evidence.ArtifactShape{evidence.ShapeSummary, evidence.ShapeFragments, evidence.ShapeRawResponse}, shapes)
}

// ---------------------------------------------------------------------------
// FragmentsParser
// ---------------------------------------------------------------------------

func TestFragmentsParser_Parse_List(t *testing.T) {
	src := artifact(t, `[
  {"text": "ISIN: US0378331005", "confidence": 0.93, "bbox": [[1,2],[3,4]]},
  {"text": "Nominal", "confidence": null, "location": {"x": 1}},
  {"text": "2500", "confidence": 64}
]`)
	sets, err := parsers.NewFragmentsParser().Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, sets, 1)

	f := sets[0].Fragments
	require.Len(t, f, 3)
	assert.Equal(t, "src", sets[0].SourceID)
	assert.Empty(t, sets[0].Section)
	assert.Equal(t, evidence.Confidence(0.93), f[0].Confidence)
	assert.JSONEq(t, `[[1,2],[3,4]]`, string(f[0].Location))
	assert.False(t, f[1].Confidence.Known())
	assert.JSONEq(t, `{"x": 1}`, string(f[1].Location))
	assert.InDelta(t, 0.64, float64(f[2].Confidence), 1e-9)
}

func TestFragmentsParser_Parse_MethodMap(t *testing.T) {
	src := artifact(t, `{
  "threshold": {"text": "U50378331OO5", "confidence": 0.41},
  "enhanced": {"text": "joined", "details": [{"text": "US0378331005", "confidence": 0.9}, {"text": "100", "confidence": 0.8}]}
}`)
	sets, err := parsers.NewFragmentsParser().Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, sets, 2)

	assert.Equal(t, "enhanced", sets[0].Section)
	assert.Equal(t, "threshold", sets[1].Section)
	assert.Equal(t, map[string][]string{
		"enhanced":  {"US0378331005", "100"},
		"threshold": {"U50378331OO5"},
	}, fragmentTexts(sets))
	assert.Equal(t, evidence.Confidence(0.41), sets[1].Fragments[0].Confidence)
	assert.Equal(t, "src/threshold", sets[1].Fragments[0].SourceRef())
}

func TestFragmentsParser_Parse_DetailsWrapper(t *testing.T) {
	src := artifact(t, `{"method": "original", "details": [{"text": "GB0002634946"}]}`)
	sets, err := parsers.NewFragmentsParser().Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, map[string][]string{"": {"GB0002634946"}}, fragmentTexts(sets))
}

// ---------------------------------------------------------------------------
// RawResponseParser
// ---------------------------------------------------------------------------

func TestRawResponseParser_Parse(t *testing.T) {
	src := artifact(t, `{"raw_response": "Security: US0378331005\n\n  Amount 17,550.00  \n"}`)
	sets, err := parsers.NewRawResponseParser().Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, sets, 1)

	assert.Equal(t, map[string][]string{"": {"Security: US0378331005", "Amount 17,550.00"}}, fragmentTexts(sets))
	for _, f := range sets[0].Fragments {
		assert.False(t, f.Confidence.Known())
	}
}

func TestRawResponseParser_Parse_Fenced(t *testing.T) {
	reply := map[string]string{
		"raw_response": "Here is the data:\n```json\n" +
			`{"extracted_text": "Nominal 100", "numbers": [100, "2,500"], "identifiers": ["DE000BAY0017"]}` +
			"\n```",
	}
	b, err := json.Marshal(reply)
	require.NoError(t, err)

	sets, err := parsers.NewRawResponseParser().Parse(context.Background(), artifact(t, string(b)))
	require.NoError(t, err)
	require.Len(t, sets, 1)

	texts := fragmentTexts(sets)[""]
	assert.Contains(t, texts, "Nominal 100")
	assert.Contains(t, texts, "100")
	assert.Contains(t, texts, "2,500")
	assert.Contains(t, texts, "DE000BAY0017")
}

func TestRawResponseParser_Parse_Sections(t *testing.T) {
	src := artifact(t, `{
  "page_2": {"raw_response": "GB0002634946"},
  "page_1": {"extracted_text": "Qty 10", "numbers": [10]}
}`)
	sets, err := parsers.NewRawResponseParser().Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "page_1", sets[0].Section)
	assert.Equal(t, map[string][]string{
		"page_1": {"Qty 10", "10"},
		"page_2": {"GB0002634946"},
	}, fragmentTexts(sets))
}

func TestRawResponseParser_Parse_SkipsSectionsWithoutReply(t *testing.T) {
	src := artifact(t, `{
  "top_left": {"extracted_text": "ISIN: US0378331005"},
  "top_right": {"error": "API request failed"},
  "bottom": {"numbers": []}
}`)
	sets, err := parsers.NewRawResponseParser().Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, sets, 3)

	assert.Equal(t, "bottom", sets[0].Section)
	assert.Equal(t, "no raw_response or extracted_text", sets[0].Skipped)
	assert.Empty(t, sets[0].Fragments)

	assert.Equal(t, "top_left", sets[1].Section)
	assert.Empty(t, sets[1].Skipped)
	assert.Equal(t, map[string][]string{"top_left": {"ISIN: US0378331005"}}, fragmentTexts(sets))

	assert.Equal(t, "top_right", sets[2].Section)
	assert.Equal(t, "error: API request failed", sets[2].Skipped)
}

func TestRawResponseParser_Parse_NumbersKeepLiteralText(t *testing.T) {
	src := artifact(t, `{"extracted_text": "Total", "numbers": [17550.00, 0.50, 12345678901234567890, "1,000", null], "identifiers": ["US0378331005"]}`)
	sets, err := parsers.NewRawResponseParser().Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, sets, 1)

	assert.Equal(t, []string{"Total", "17550.00", "0.50", "12345678901234567890", "1,000", "US0378331005"},
		fragmentTexts(sets)[""])
}

// ---------------------------------------------------------------------------
// SummaryParser
// ---------------------------------------------------------------------------

func TestSummaryParser_Parse(t *testing.T) {
	src := artifact(t, `{"numbers": ["17,550.00", 100.50], "ids": ["US0378331005"], "identifiers": ["GB0002634946"]}`)
	sets, err := parsers.NewSummaryParser().Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, sets, 2)

	assert.Equal(t, map[string][]string{
		"identifiers": {"US0378331005", "GB0002634946"},
		"numbers":     {"17,550.00", "100.50"},
	}, fragmentTexts(sets))
	for _, s := range sets {
		for _, f := range s.Fragments {
			assert.False(t, f.Confidence.Known())
		}
	}
}
