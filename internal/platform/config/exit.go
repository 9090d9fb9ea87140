package config

import (
	"fmt"
	"os"
)

// Exitf prints a formatted error to stderr and exits with code 1. Entry
// points use it for failures that happen before logging is configured.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
