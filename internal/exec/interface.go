// Package exec runs the local substitute checks (unit tests, lint) used
// when the automation backend is unavailable.
package exec

import (
	"context"
)

// CommandRunner runs external commands. Tests substitute a fake.
type CommandRunner interface {
	// Run executes name with args in workDir and returns combined output.
	// A non-zero exit status is returned as an error.
	Run(ctx context.Context, workDir string, name string, args ...string) (output []byte, err error)

	// RunShell executes a user-supplied command line through "sh -c".
	RunShell(ctx context.Context, workDir string, command string) (output []byte, err error)

	// LookPath reports whether an executable is on PATH.
	LookPath(name string) bool
}
