// SPDX-License-Identifier: Apache-2.0

// Package parsers normalizes the supported result artifact shapes into
// evidence.ResultSet values.
package parsers

import "github.com/secscan/isinscan/internal/evidence"

// Default returns every parser in detection order. Summaries are tried
// first because their lists would otherwise look like free-form replies.
func Default() []evidence.ArtifactParser {
	return []evidence.ArtifactParser{
		NewSummaryParser(),
		NewFragmentsParser(),
		NewRawResponseParser(),
	}
}
