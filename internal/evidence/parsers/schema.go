// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// mustCompileSchema compiles an embedded JSON Schema describing one artifact
// shape. The schemas are constants, so a failure is a programming error.
func mustCompileSchema(name, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name, strings.NewReader(schema)); err != nil {
		panic("parsers: add schema " + name + ": " + err.Error())
	}
	return compiler.MustCompile(name)
}

// matches reports whether doc validates against schema.
func matches(schema *jsonschema.Schema, doc any) bool {
	if doc == nil {
		return false
	}
	return schema.Validate(doc) == nil
}
