// SPDX-License-Identifier: Apache-2.0

package summary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Marshal renders s in its canonical on-disk form. Equal summaries always
// produce identical bytes.
func Marshal(s Summary) ([]byte, error) {
	if s.Numbers == nil {
		s.Numbers = []string{}
	}
	if s.Identifiers == nil {
		s.Identifiers = []string{}
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return append(b, '\n'), nil
}

// Write checks s against the summary contract and replaces any file at path.
// A failure here means the run produced no output and must be surfaced.
func Write(path string, s Summary) error {
	if err := Check(s); err != nil {
		return err
	}
	b, err := Marshal(s)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, b)
}

// writeFileAtomic writes through a temporary sibling so a crash never leaves
// a truncated artifact behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// CompletionLine is the one human-readable line reported per run.
func CompletionLine(s Summary) string {
	ids := "none"
	if len(s.Identifiers) > 0 {
		ids = strings.Join(s.Identifiers, ", ")
	}
	return fmt.Sprintf("found %d numbers and %d unique identifiers; identifiers: %s",
		s.TotalNumbersFound, s.TotalIdentifiersFound, ids)
}
