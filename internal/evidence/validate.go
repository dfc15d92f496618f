// SPDX-License-Identifier: Apache-2.0

package evidence

import (
	"github.com/secscan/isinscan/internal/pattern"
)

// RejectReason explains why a strict candidate was not validated.
type RejectReason string

const (
	// ReasonPatternMismatch: the candidate failed the independent shape re-check.
	ReasonPatternMismatch RejectReason = "pattern_mismatch"
	// ReasonChecksumMismatch: the check digit is wrong and checksums are enforced.
	ReasonChecksumMismatch RejectReason = "checksum_mismatch"
)

// Rejection is a strict-kind candidate that did not survive validation.
type Rejection struct {
	PoolEntry
	Reason RejectReason `json:"reason"`
}

// Validation partitions a pool for the summary builder.
type Validation struct {
	// Identifiers are confirmed strict identifiers, sorted by text.
	Identifiers []PoolEntry
	// Rejected are strict-kind entries that failed re-validation.
	Rejected []Rejection
	// Loose are advisory candidates; they never become identifiers.
	Loose []PoolEntry
	// Numbers are the distinct numeric tokens, sorted by text.
	Numbers []PoolEntry
}

// ValidatorConfig controls optional strictness.
type ValidatorConfig struct {
	// RequireChecksum additionally rejects identifiers whose ISIN check
	// digit is wrong. Off by default.
	RequireChecksum bool
}

// Validator re-checks strict candidates and partitions the pool.
type Validator struct {
	cfg ValidatorConfig
}

// NewValidator creates a Validator.
func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate partitions pool. The returned identifiers always satisfy the
// 12-character shape, whatever an upstream source claimed.
func (v *Validator) Validate(pool *AggregatedPool) Validation {
	out := Validation{
		Identifiers: make([]PoolEntry, 0),
		Rejected:    make([]Rejection, 0),
	}
	if pool == nil {
		pool = NewAggregatedPool()
	}

	for _, e := range pool.Entries(pattern.StrictIdentifier) {
		switch {
		case !wellFormedIdentifier(e.Text):
			out.Rejected = append(out.Rejected, Rejection{PoolEntry: e, Reason: ReasonPatternMismatch})
		case v.cfg.RequireChecksum && !pattern.ValidCheckDigit(e.Text):
			out.Rejected = append(out.Rejected, Rejection{PoolEntry: e, Reason: ReasonChecksumMismatch})
		default:
			out.Identifiers = append(out.Identifiers, e)
		}
	}
	out.Loose = pool.Entries(pattern.LooseCandidate)
	out.Numbers = pool.Entries(pattern.NumericToken)
	return out
}

// wellFormedIdentifier checks the identifier shape without the extraction
// regexps, so drift in one cannot leak through the other.
func wellFormedIdentifier(s string) bool {
	if len(s) != pattern.IdentifierLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		upper := c >= 'A' && c <= 'Z'
		digit := c >= '0' && c <= '9'
		if i < 2 && !upper {
			return false
		}
		if !upper && !digit {
			return false
		}
	}
	return true
}
