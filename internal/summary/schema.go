// SPDX-License-Identifier: Apache-2.0

package summary

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// summaryCUE is the contract every persisted summary must satisfy.
const summaryCUE = `
#Summary: {
	numbers: [...string]
	identifiers: [...=~"^[A-Z]{2}[A-Z0-9]{10}$"]
	total_numbers_found:     int & >=0 & len(numbers)
	total_identifiers_found: int & >=0 & len(identifiers)
}
`

// Check unifies s with the #Summary definition. It rejects extra fields,
// counts that disagree with their lists, and malformed identifiers.
func Check(s Summary) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(summaryCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile summary schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Summary"))

	if s.Numbers == nil {
		s.Numbers = []string{}
	}
	if s.Identifiers == nil {
		s.Identifiers = []string{}
	}
	val := ctx.Encode(s)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("summary violates schema: %w", err)
	}
	return nil
}
