// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/secscan/isinscan/internal/pattern"
)

// MetadataClassifyToken describes the classify_token tool.
var MetadataClassifyToken = &mcp.Tool{
	Name: "classify_token",
	Description: "Classify OCR tokens as strict identifiers (two letters then ten letters or digits), " +
		"loose identifier candidates, or numeric tokens. A token may be both an identifier kind " +
		"and a number; it is never both strict and loose.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"tokens"},
		"properties": map[string]interface{}{
			"tokens": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Raw tokens as read by OCR",
			},
		},
	},
	OutputSchema: map[string]interface{}{"type": "object"},
}

// InputClassifyToken is the input for the ClassifyToken tool.
type InputClassifyToken struct {
	Tokens []string `json:"tokens"`
}

// TokenClass is the classification of one token.
type TokenClass struct {
	Token      string `json:"token"`
	Normalized string `json:"normalized"`
	// Kinds is empty when the token matches nothing.
	Kinds []pattern.Kind `json:"kinds"`
	// ChecksumValid is set only for strict identifiers.
	ChecksumValid *bool `json:"checksum_valid,omitempty"`
}

// OutputClassifyToken is the output for the ClassifyToken tool.
type OutputClassifyToken struct {
	Results []TokenClass `json:"results"`
}

// ClassifyToken reports the pattern kinds of each token.
func ClassifyToken(_ context.Context, _ *mcp.CallToolRequest, input InputClassifyToken) (*mcp.CallToolResult, OutputClassifyToken, error) {
	if len(input.Tokens) == 0 {
		return nil, OutputClassifyToken{}, fmt.Errorf("tokens is required")
	}
	out := OutputClassifyToken{Results: make([]TokenClass, 0, len(input.Tokens))}
	for _, token := range input.Tokens {
		out.Results = append(out.Results, Classify(token))
	}
	return nil, out, nil
}

// Classify builds the TokenClass for one token.
func Classify(token string) TokenClass {
	tc := TokenClass{
		Token:      token,
		Normalized: pattern.Normalize(token),
		Kinds:      pattern.Classify(token),
	}
	if tc.Kinds == nil {
		tc.Kinds = []pattern.Kind{}
	}
	for _, k := range tc.Kinds {
		if k == pattern.StrictIdentifier {
			valid := pattern.ValidCheckDigit(tc.Normalized)
			tc.ChecksumValid = &valid
		}
	}
	return tc
}
