//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

package cli

// IsTerminal reports whether fd refers to a terminal. Color is never
// enabled on platforms without termios.
func IsTerminal(fd uintptr) bool { return false }
