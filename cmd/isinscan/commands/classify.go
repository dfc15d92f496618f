// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/secscan/isinscan/internal/pattern"
	"github.com/secscan/isinscan/internal/tool"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify TOKEN...",
		Short: "Show how tokens are classified",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, token := range args {
				tc := tool.Classify(token)
				kinds := make([]string, 0, len(tc.Kinds))
				for _, k := range tc.Kinds {
					kinds = append(kinds, k.String())
				}
				label := "none"
				if len(kinds) > 0 {
					label = strings.Join(kinds, ",")
				}

				line := fmt.Sprintf("%s\t%s\t%s", token, tc.Normalized, label)
				if tc.ChecksumValid != nil {
					line += fmt.Sprintf("\tchecksum_valid=%t", *tc.ChecksumValid)
				}
				kindColor(tc.Kinds).Fprintln(out, line)
			}
			return nil
		},
	}
}

func kindColor(kinds []pattern.Kind) *color.Color {
	for _, k := range kinds {
		switch k {
		case pattern.StrictIdentifier:
			return color.New(color.FgGreen)
		case pattern.LooseCandidate:
			return color.New(color.FgYellow)
		}
	}
	return color.New(color.Reset)
}
