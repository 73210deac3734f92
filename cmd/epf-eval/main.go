package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess = 0 // Run completed
	ExitUsage   = 1 // Bad scenario, provider, flags or missing keys
	ExitError   = 2 // Unexpected runtime error
)

// UsageError marks a failure caused by the invocation rather than the run.
// Quiet errors have already been reported to the user.
type UsageError struct {
	Err   error
	Quiet bool
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

func usageErrorf(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(exitCode(execute(os.Args[1:], os.Stdout, os.Stderr), os.Stderr))
}

// exitCode reports err on stderr and maps it to a process exit code.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		if !usageErr.Quiet {
			fmt.Fprintf(stderr, "Error: %v\n", err) //nolint:errcheck
		}
		return ExitUsage
	}

	fmt.Fprintf(stderr, "Error: %v\n", err) //nolint:errcheck
	return ExitError
}
