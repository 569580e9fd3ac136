// In file: internal/agent/explain.go
package agent

import (
	"fmt"
	"io"
	"strings"
)

var rule = strings.Repeat("=", 80)

// Explain writes the query, each reasoning step and the final response.
func Explain(w io.Writer, query string, res *Result) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "QUERY:", query)
	fmt.Fprintln(w, rule)

	if len(res.Steps) > 0 {
		fmt.Fprintln(w, "\nREASONING STEPS:")
		for i, s := range res.Steps {
			fmt.Fprintf(w, "\nStep %d:\n", i+1)
			fmt.Fprintf(w, "  Tool: %s\n", s.Tool)
			fmt.Fprintf(w, "  Input: %s\n", s.Input)
			fmt.Fprintf(w, "  Output: %s\n", s.Observation())
		}
	}

	output := res.Output
	if output == "" {
		output = "No response generated."
	}
	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "FINAL RESPONSE:")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, output)
	fmt.Fprintln(w, rule)
}
