package cli

import (
	"os"
)

// UseColor reports whether diagnostics written to f should be colored:
// f must be a terminal and NO_COLOR must be unset.
func UseColor(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return IsTerminal(f.Fd())
}
