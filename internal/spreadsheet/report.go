package spreadsheet

import (
	"fmt"
	"strings"
)

// Report renders a human readable summary of a parse result.
func Report(res Result) string {
	var b strings.Builder

	fmt.Fprintln(&b, "spreadsheet parse report")
	fmt.Fprintf(&b, "total rows: %d\n", res.TotalRows)
	fmt.Fprintf(&b, "valid rows: %d\n", res.ValidRows)
	fmt.Fprintf(&b, "errors: %d\n", len(res.Errors))

	if len(res.CandidateNames) > 0 {
		fmt.Fprintln(&b, "names:")
		for i, name := range res.CandidateNames {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, name)
		}
	}

	if len(res.Errors) > 0 {
		fmt.Fprintln(&b, "problems:")
		for _, e := range res.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}

	return b.String()
}
