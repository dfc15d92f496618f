// SPDX-License-Identifier: Apache-2.0

package evidence

import (
	"strings"
	"unicode"

	"github.com/secscan/isinscan/internal/pattern"
)

// searchRule finds one kind of candidate embedded anywhere in a fragment's
// text, e.g. the identifier in "ISIN: US0378331005 Qty 100".
type searchRule struct {
	kind pattern.Kind
	find func(text string) []string
}

// fragmentSearchRules run over the whole fragment text before tokenization.
var fragmentSearchRules = []searchRule{
	{kind: pattern.StrictIdentifier, find: pattern.FindIdentifiers},
	{kind: pattern.NumericToken, find: pattern.FindNumbers},
}

// Extractor classifies the fragments of a result set into candidates.
// It applies pattern shape only; structural validation happens later.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the candidates found in set. A fragment yields at most one
// candidate per (kind, normalized text).
func (e *Extractor) Extract(set ResultSet) []Candidate {
	var candidates []Candidate
	for _, fragment := range set.Fragments {
		if fragment.SourceID == "" {
			fragment.SourceID = set.SourceID
		}
		if fragment.Section == "" {
			fragment.Section = set.Section
		}
		candidates = append(candidates, e.extractFragment(fragment)...)
	}
	return candidates
}

type candidateKey struct {
	kind pattern.Kind
	text string
}

func (e *Extractor) extractFragment(fragment TextFragment) []Candidate {
	var out []Candidate
	seen := make(map[candidateKey]struct{})
	emit := func(kind pattern.Kind, raw string) {
		normalized := pattern.Normalize(raw)
		key := candidateKey{kind: kind, text: normalized}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, Candidate{
			RawText:        raw,
			NormalizedText: normalized,
			Kind:           kind,
			Confidence:     fragment.Confidence,
			SourceID:       fragment.SourceRef(),
		})
	}

	// Too short to hold an identifier of either shape.
	numericOnly := len(pattern.Normalize(fragment.Text)) < pattern.LooseMinLength

	for _, rule := range fragmentSearchRules {
		if numericOnly && rule.kind != pattern.NumericToken {
			continue
		}
		for _, match := range rule.find(fragment.Text) {
			emit(rule.kind, match)
		}
	}

	for _, field := range strings.Fields(fragment.Text) {
		token := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if token == "" {
			continue
		}
		identifierEligible := !numericOnly && identifierLike(token)
		for _, kind := range pattern.Classify(token) {
			if kind != pattern.NumericToken && !identifierEligible {
				continue
			}
			emit(kind, token)
		}
	}
	return out
}

// identifierLike rejects ordinary words: a token must carry a digit or be
// written without lowercase letters to be read as an identifier.
func identifierLike(token string) bool {
	hasDigit, hasLower := false, false
	for _, r := range token {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}
	return hasDigit || !hasLower
}
