package sandbox

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

// Assemble combines an execution result into one human-readable string.
// Sections appear only when non-empty: "Output:" for captured stdout,
// "Stderr:" for captured stderr, "Result:" for a captured value. A fault
// renders as its formatted diagnostic in place of the Result section, after
// any output captured before the fault. An empty result yields "".
func Assemble(res Result) string {
	var parts []string
	if res.Stdout != "" {
		parts = append(parts, "Output:\n"+res.Stdout)
	}
	if res.Stderr != "" {
		parts = append(parts, "Stderr:\n"+res.Stderr)
	}
	if res.Fault != nil {
		parts = append(parts, res.Fault.Error())
	} else if res.HasValue {
		parts = append(parts, "Result: "+formatValue(res.Value))
	}

	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n") + "\n"
}

// formatValue renders a captured value the way a REPL echoes it: strings
// quoted, everything else via its exported Go representation.
func formatValue(v goja.Value) string {
	exported := v.Export()
	if s, ok := exported.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprintf("%v", exported)
}
