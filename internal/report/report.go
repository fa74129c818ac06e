// Package report prints the per-stage table and aggregate verdict. The
// shape of this output is a contract: CI wrappers parse the "name:
// STATUS" lines, the "Total: P/T tests passed" line, and the verdict.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/go-auth-e2e/flow"
)

const ruleWidth = 60

func rule() string {
	return strings.Repeat("=", ruleWidth)
}

// Print writes the summary table for one run.
func Print(w io.Writer, summary flow.Summary) {
	fmt.Fprintf(w, "\n%s%s\nTest Summary\n%s%s\n\n", Blue, rule(), rule(), ResetColor)

	for _, result := range summary.Results {
		fmt.Fprintf(w, "  %s: %s\n", result.Stage, statusLabel(result))
	}

	fmt.Fprintf(w, "\n%sTotal: %d/%d tests passed%s\n", Blue, summary.Passed, summary.Attempted, ResetColor)

	if summary.OK() {
		fmt.Fprintf(w, "\n%sAll tests passed!%s\n", Green, ResetColor)
	} else {
		fmt.Fprintf(w, "\n%sSome tests failed%s\n", Red, ResetColor)
	}
}

func statusLabel(result flow.Result) string {
	switch result.Status {
	case flow.StatusPassed:
		return Green + "PASS" + ResetColor
	case flow.StatusSkipped:
		return Yellow + "SKIP (not attempted)" + ResetColor
	default:
		label := Red + "FAIL" + ResetColor
		if result.Detail != "" {
			label += " " + Gray + result.Detail + ResetColor
		}
		return label
	}
}
