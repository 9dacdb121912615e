package scenario

import (
	"fmt"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// AssertionError reports that the page did not reach the expected state.
type AssertionError struct {
	What     string
	Expected string
	Actual   string
	// Diff is set for text comparisons.
	Diff string
}

func (e *AssertionError) Error() string {
	msg := fmt.Sprintf("%s: expected %s, got %s", e.What, e.Expected, e.Actual)
	if e.Diff != "" {
		msg += "\n" + e.Diff
	}
	return msg
}

func textMismatch(what, expected, actual string) *AssertionError {
	return &AssertionError{
		What:     what,
		Expected: fmt.Sprintf("%q", expected),
		Actual:   fmt.Sprintf("%q", actual),
		Diff:     textDiff(expected, actual),
	}
}

// textDiff renders a unified diff for multi-line text and an inline
// [-deleted-]{+inserted+} diff otherwise.
func textDiff(expected, actual string) string {
	if strings.Contains(expected, "\n") || strings.Contains(actual, "\n") {
		edits := myers.ComputeEdits(span.URIFromPath("expected"), expected, actual)
		return fmt.Sprint(gotextdiff.ToUnified("expected", "actual", expected, edits))
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(expected, actual, false))
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}
