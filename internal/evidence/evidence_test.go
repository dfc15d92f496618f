// SPDX-License-Identifier: Apache-2.0

package evidence_test

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secscan/isinscan/internal/evidence"
	"github.com/secscan/isinscan/internal/pattern"
)

// ---------------------------------------------------------------------------
// Confidence
// ---------------------------------------------------------------------------

func TestNewConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want evidence.Confidence
	}{
		{in: 0, want: 0},
		{in: 0.91, want: 0.91},
		{in: 1, want: 1},
		{in: 72, want: 0.72},
		{in: 100, want: 1},
		{in: 250, want: evidence.Unknown},
		{in: math.Inf(1), want: evidence.Unknown},
		{in: -1, want: evidence.Unknown},
		{in: math.NaN(), want: evidence.Unknown},
	}
	for _, tt := range tests {
		assert.InDelta(t, float64(tt.want), float64(evidence.NewConfidence(tt.in)), 1e-9, "input %v", tt.in)
	}
}

func TestConfidence_Ordering(t *testing.T) {
	assert.True(t, evidence.Unknown.Less(0), "unknown ranks below zero")
	assert.False(t, evidence.Confidence(0).Less(evidence.Unknown))
	assert.False(t, evidence.Unknown.Less(evidence.Unknown))
	assert.True(t, evidence.Confidence(0.5).Less(0.6))
	assert.False(t, evidence.Confidence(0.6).Less(0.6))
	assert.False(t, evidence.Unknown.Known())
}

func TestConfidence_JSON(t *testing.T) {
	b, err := json.Marshal([]evidence.Confidence{0.5, evidence.Unknown})
	require.NoError(t, err)
	assert.JSONEq(t, `[0.5, "unknown"]`, string(b))

	var got []evidence.Confidence
	require.NoError(t, json.Unmarshal([]byte(`[0.25, null, "unknown", 88]`), &got))
	assert.Equal(t, []evidence.Confidence{0.25, evidence.Unknown, evidence.Unknown, 0.88}, got)

	var c evidence.Confidence
	assert.Error(t, json.Unmarshal([]byte(`"high"`), &c))
}

// ---------------------------------------------------------------------------
// Extractor
// ---------------------------------------------------------------------------

func TestExtractor_Extract(t *testing.T) {
	extractor := evidence.NewExtractor()

	type want struct {
		kind pattern.Kind
		text string
	}

	tests := []struct {
		name string
		text string
		want []want
	}{
		{
			name: "identifier embedded in a labelled line",
			text: "ISIN: US0378331005",
			want: []want{{pattern.StrictIdentifier, "US0378331005"}},
		},
		{
			name: "misread identifier is only a loose candidate",
			text: "ISIN: U50378331OO5",
			want: []want{{pattern.LooseCandidate, "U50378331OO5"}},
		},
		{
			name: "grouped amount is one number",
			text: "17,550.00",
			want: []want{{pattern.NumericToken, "17,550.00"}},
		},
		{
			name: "short fragment yields numbers only",
			text: "Qty 100",
			want: []want{{pattern.NumericToken, "100"}},
		},
		{
			name: "lowercase identifier token is normalized",
			text: "isin us0378331005",
			want: []want{{pattern.StrictIdentifier, "US0378331005"}},
		},
		{
			name: "full-width glyphs are folded",
			text: "ＵＳ０３７８３３１００５",
			want: []want{{pattern.StrictIdentifier, "US0378331005"}},
		},
		{
			name: "digits only is a number, never an identifier",
			text: "123456789012",
			want: []want{{pattern.NumericToken, "123456789012"}},
		},
		{
			name: "twelve-letter heading has the identifier shape",
			text: "CONSOLIDATED STATEMENT",
			want: []want{{pattern.StrictIdentifier, "CONSOLIDATED"}},
		},
		{
			name: "plain words produce nothing",
			text: "Settlement Instructions Attached",
			want: nil,
		},
		{
			name: "identifier and amount on one line",
			text: "DE000BAY0017 Nominal 2500",
			want: []want{
				{pattern.StrictIdentifier, "DE000BAY0017"},
				{pattern.NumericToken, "2500"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := evidence.ResultSet{
				SourceID:  "easyocr",
				Section:   "enhanced",
				Fragments: []evidence.TextFragment{{Text: tt.text, Confidence: 0.8}},
			}
			candidates := extractor.Extract(set)

			got := make([]want, 0, len(candidates))
			for _, c := range candidates {
				got = append(got, want{c.Kind, c.NormalizedText})
				assert.Equal(t, "easyocr/enhanced", c.SourceID)
				assert.Equal(t, evidence.Confidence(0.8), c.Confidence)
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestExtractor_OneCandidatePerKindAndText(t *testing.T) {
	set := evidence.ResultSet{
		SourceID: "mistral",
		Fragments: []evidence.TextFragment{
			{Text: "US0378331005 US0378331005", Confidence: evidence.Unknown},
		},
	}
	candidates := evidence.NewExtractor().Extract(set)
	require.Len(t, candidates, 1)
	assert.Equal(t, "mistral", candidates[0].SourceID)
	assert.False(t, candidates[0].Confidence.Known())
}

// ---------------------------------------------------------------------------
// AggregatedPool
// ---------------------------------------------------------------------------

func candidate(kind pattern.Kind, raw string, conf evidence.Confidence, source string) evidence.Candidate {
	return evidence.Candidate{
		RawText:        raw,
		NormalizedText: pattern.Normalize(raw),
		Kind:           kind,
		Confidence:     conf,
		SourceID:       source,
	}
}

func TestAggregatedPool_KeepsMaxConfidence(t *testing.T) {
	pool := evidence.NewAggregatedPool()
	pool.Add(candidate(pattern.StrictIdentifier, "US0378331005", 0.6, "tesseract"))
	pool.Add(candidate(pattern.StrictIdentifier, "us0378331005", 0.9, "easyocr"))
	pool.Add(candidate(pattern.StrictIdentifier, "US0378331005", evidence.Unknown, "mistral"))

	require.Equal(t, 1, pool.Len())
	e, ok := pool.Lookup(pattern.StrictIdentifier, "US0378331005")
	require.True(t, ok)
	assert.Equal(t, evidence.Confidence(0.9), e.Confidence)
	assert.Equal(t, "us0378331005", e.RawText)
	assert.Equal(t, []string{"easyocr", "mistral", "tesseract"}, e.Sources)
	assert.Equal(t, 3, e.Occurrences)
}

func TestAggregatedPool_TieBreaksOnRawText(t *testing.T) {
	pool := evidence.NewAggregatedPool()
	pool.Add(candidate(pattern.NumericToken, "100", evidence.Unknown, "b"))
	pool.Add(candidate(pattern.NumericToken, "100", evidence.Unknown, "a"))

	e, ok := pool.Lookup(pattern.NumericToken, "100")
	require.True(t, ok)
	assert.False(t, e.Confidence.Known())
	assert.Equal(t, []string{"a", "b"}, e.Sources)
}

func TestAggregatedPool_KindsAreSeparate(t *testing.T) {
	pool := evidence.NewAggregatedPool()
	pool.Add(candidate(pattern.LooseCandidate, "U50378331OO5", 0.7, "a"))
	pool.Add(candidate(pattern.NumericToken, "2500", 0.7, "a"))

	assert.Equal(t, 2, pool.Len())
	assert.Empty(t, pool.Entries(pattern.StrictIdentifier))
	assert.Len(t, pool.Entries(pattern.LooseCandidate), 1)
	_, ok := pool.Lookup(pattern.StrictIdentifier, "U50378331OO5")
	assert.False(t, ok)
}

func TestAggregatedPool_OrderIndependent(t *testing.T) {
	candidates := []evidence.Candidate{
		candidate(pattern.StrictIdentifier, "US0378331005", 0.91, "easyocr/enhanced"),
		candidate(pattern.StrictIdentifier, "US0378331005", 0.55, "tesseract/threshold"),
		candidate(pattern.StrictIdentifier, "us0378331005", 0.91, "easyocr/original"),
		candidate(pattern.StrictIdentifier, "GB0002634946", evidence.Unknown, "mistral"),
		candidate(pattern.LooseCandidate, "U50378331OO5", 0.72, "tesseract/threshold"),
		candidate(pattern.NumericToken, "17,550.00", 0.88, "easyocr/enhanced"),
		candidate(pattern.NumericToken, "17,550.00", evidence.Unknown, "mistral"),
		candidate(pattern.NumericToken, "100", 0.4, "easyocr/original"),
	}

	reference := evidence.NewAggregatedPool()
	reference.AddAll(candidates)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := append([]evidence.Candidate(nil), candidates...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		// Split into two pools and merge, exercising associativity as well.
		cut := rng.Intn(len(shuffled) + 1)
		left, right := evidence.NewAggregatedPool(), evidence.NewAggregatedPool()
		left.AddAll(shuffled[:cut])
		right.AddAll(shuffled[cut:])
		right.Merge(left)

		for _, kind := range pattern.Kinds {
			assert.Equal(t, reference.Entries(kind), right.Entries(kind), "kind %s, iteration %d", kind, i)
		}
	}
}

func TestAggregatedPool_EntriesAreCopies(t *testing.T) {
	pool := evidence.NewAggregatedPool()
	pool.Add(candidate(pattern.NumericToken, "100", 0.5, "a"))

	entries := pool.Entries(pattern.NumericToken)
	entries[0].Sources[0] = "mutated"

	e, _ := pool.Lookup(pattern.NumericToken, "100")
	assert.Equal(t, []string{"a"}, e.Sources)
}

// ---------------------------------------------------------------------------
// Validator
// ---------------------------------------------------------------------------

func TestValidator_Validate(t *testing.T) {
	pool := evidence.NewAggregatedPool()
	pool.AddAll([]evidence.Candidate{
		candidate(pattern.StrictIdentifier, "US0378331005", 0.9, "a"),
		candidate(pattern.StrictIdentifier, "US0378331006", 0.9, "a"),
		// A source that mislabelled a short code as strict.
		{RawText: "US03783310", NormalizedText: "US03783310", Kind: pattern.StrictIdentifier, Confidence: 0.9, SourceID: "b"},
		candidate(pattern.LooseCandidate, "U50378331OO5", 0.7, "a"),
		candidate(pattern.NumericToken, "2500", 0.7, "a"),
	})

	t.Run("shape only by default", func(t *testing.T) {
		v := evidence.NewValidator(evidence.ValidatorConfig{}).Validate(pool)

		texts := func(entries []evidence.PoolEntry) []string {
			var out []string
			for _, e := range entries {
				out = append(out, e.Text)
			}
			return out
		}
		assert.Equal(t, []string{"US0378331005", "US0378331006"}, texts(v.Identifiers))
		require.Len(t, v.Rejected, 1)
		assert.Equal(t, "US03783310", v.Rejected[0].Text)
		assert.Equal(t, evidence.ReasonPatternMismatch, v.Rejected[0].Reason)
		assert.Equal(t, []string{"U50378331OO5"}, texts(v.Loose))
		assert.Equal(t, []string{"2500"}, texts(v.Numbers))
	})

	t.Run("checksum enforced when required", func(t *testing.T) {
		v := evidence.NewValidator(evidence.ValidatorConfig{RequireChecksum: true}).Validate(pool)

		require.Len(t, v.Identifiers, 1)
		assert.Equal(t, "US0378331005", v.Identifiers[0].Text)
		reasons := map[string]evidence.RejectReason{}
		for _, r := range v.Rejected {
			reasons[r.Text] = r.Reason
		}
		assert.Equal(t, map[string]evidence.RejectReason{
			"US03783310":   evidence.ReasonPatternMismatch,
			"US0378331006": evidence.ReasonChecksumMismatch,
		}, reasons)
	})
}

func TestValidator_NilPool(t *testing.T) {
	v := evidence.NewValidator(evidence.ValidatorConfig{}).Validate(nil)
	assert.NotNil(t, v.Identifiers)
	assert.NotNil(t, v.Rejected)
	assert.Empty(t, v.Identifiers)
	assert.Empty(t, v.Numbers)
}
