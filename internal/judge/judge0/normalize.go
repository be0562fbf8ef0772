package judge0

import "strings"

// NormalizeOutput canonicalizes raw stdout before comparison with the expected literal.
// Runtimes that print arrays as "[ a, b ]" are collapsed to "[a, b]", newlines are dropped
// and lower-case booleans take the capitalized form used by the stored literals.
func NormalizeOutput(stdout *string) *string {
	if stdout == nil {
		return nil
	}
	out := *stdout
	if strings.Contains(out, "[ ") && strings.Contains(out, " ]") {
		out = strings.ReplaceAll(out, "[ ", "[")
		out = strings.ReplaceAll(out, " ]", "]")
	}
	out = strings.ReplaceAll(out, "\n", "")
	switch out {
	case "true":
		out = "True"
	case "false":
		out = "False"
	}
	return &out
}
