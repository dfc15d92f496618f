// SPDX-License-Identifier: Apache-2.0

// Package pattern classifies OCR text tokens as security identifiers
// (ISIN-shaped codes) or plain numbers.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// IdentifierLength is the length of a well-formed identifier.
const IdentifierLength = 12

// LooseMinLength is the shortest run that can be a loose identifier candidate.
const LooseMinLength = 8

// Kind is one classification a token can receive.
type Kind int

const (
	// StrictIdentifier is two uppercase letters followed by ten uppercase
	// letters or digits.
	StrictIdentifier Kind = iota + 1
	// LooseCandidate is a run of at least eight uppercase letters/digits with
	// at least one of each that is not a StrictIdentifier.
	LooseCandidate
	// NumericToken is a run of digits with an optional decimal part.
	NumericToken
)

// Kinds lists every Kind in precedence order.
var Kinds = []Kind{StrictIdentifier, LooseCandidate, NumericToken}

func (k Kind) String() string {
	switch k {
	case StrictIdentifier:
		return "strict_identifier"
	case LooseCandidate:
		return "loose_candidate"
	case NumericToken:
		return "numeric_token"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name produced by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	for _, kind := range Kinds {
		if kind.String() == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown kind %q", string(b))
}

var (
	strictRe  = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{10}$`)
	looseRe   = regexp.MustCompile(`^[A-Z0-9]{8,}$`)
	numericRe = regexp.MustCompile(`^\d+(?:[.,]\d{3})*(?:[.,]\d+)?$`)

	// Unanchored forms for searching inside longer OCR lines.
	strictSearchRe  = regexp.MustCompile(`\b[A-Z]{2}[A-Z0-9]{10}\b`)
	numericSearchRe = regexp.MustCompile(`\b\d+(?:[.,]\d{3})*(?:[.,]\d+)?\b`)
)

// Normalize folds full-width glyphs to ASCII, strips all whitespace and
// uppercases the result.
func Normalize(s string) string {
	s = width.Fold.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.ToUpper(s)
}

// IsStrictIdentifier reports whether the normalized token has the canonical
// identifier shape.
func IsStrictIdentifier(token string) bool {
	return strictRe.MatchString(token)
}

// IsLooseCandidate reports whether the normalized token is a recall-oriented
// identifier candidate. Strict identifiers are never loose candidates.
func IsLooseCandidate(token string) bool {
	if !looseRe.MatchString(token) || strictRe.MatchString(token) {
		return false
	}
	return strings.ContainsAny(token, "0123456789") &&
		strings.IndexFunc(token, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0
}

// IsNumericToken reports whether the normalized token is a number.
func IsNumericToken(token string) bool {
	return numericRe.MatchString(token)
}

// Classify normalizes raw and returns every Kind that applies, in precedence
// order. StrictIdentifier and LooseCandidate never both apply.
func Classify(raw string) []Kind {
	token := Normalize(raw)
	if token == "" {
		return nil
	}
	var kinds []Kind
	switch {
	case IsStrictIdentifier(token):
		kinds = append(kinds, StrictIdentifier)
	case IsLooseCandidate(token):
		kinds = append(kinds, LooseCandidate)
	}
	if IsNumericToken(token) {
		kinds = append(kinds, NumericToken)
	}
	return kinds
}

// FindIdentifiers returns every strict-shaped identifier embedded in text,
// in order of appearance. The search is case sensitive so ordinary words in
// lowercase or mixed case are not picked up.
func FindIdentifiers(text string) []string {
	return strictSearchRe.FindAllString(width.Fold.String(text), -1)
}

// FindNumbers returns every numeric run embedded in text, verbatim.
func FindNumbers(text string) []string {
	return numericSearchRe.FindAllString(width.Fold.String(text), -1)
}
