// SPDX-License-Identifier: Apache-2.0

// Package summary builds and persists the consolidated result of one
// aggregation run.
package summary

import (
	"sort"

	"github.com/secscan/isinscan/internal/evidence"
)

// Summary is the pipeline's only durable output.
type Summary struct {
	TotalNumbersFound     int      `json:"total_numbers_found"`
	TotalIdentifiersFound int      `json:"total_identifiers_found"`
	Numbers               []string `json:"numbers"`
	Identifiers           []string `json:"identifiers"`
}

// Build derives the summary from a validation result. Both sequences are
// distinct and sorted as strings so OCR formatting is preserved verbatim.
func Build(v evidence.Validation) Summary {
	numbers := distinctSorted(v.Numbers)
	identifiers := distinctSorted(v.Identifiers)
	return Summary{
		TotalNumbersFound:     len(numbers),
		TotalIdentifiersFound: len(identifiers),
		Numbers:               numbers,
		Identifiers:           identifiers,
	}
}

func distinctSorted(entries []evidence.PoolEntry) []string {
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Text]; dup {
			continue
		}
		seen[e.Text] = struct{}{}
		out = append(out, e.Text)
	}
	sort.Strings(out)
	return out
}
