package config

import (
	"fmt"
	"os"
)

// Exitf writes "program: message" to stderr and exits with code 1.
func Exitf(program, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", program, fmt.Sprintf(format, args...))
	os.Exit(1)
}
