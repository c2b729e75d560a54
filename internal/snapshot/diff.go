package snapshot

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified diff between two JSON snapshot documents. Both
// sides are normalized to sorted, indented JSON first, so key order and
// whitespace never show up as changes. An empty string means no difference.
func Diff(fromName, toName string, from, to []byte) (string, error) {
	a, err := reencode(from, "  ")
	if err != nil {
		return "", fmt.Errorf("failed to normalize %s: %w", fromName, err)
	}
	b, err := reencode(to, "  ")
	if err != nil {
		return "", fmt.Errorf("failed to normalize %s: %w", toName, err)
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a) + "\n"),
		B:        difflib.SplitLines(string(b) + "\n"),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}
