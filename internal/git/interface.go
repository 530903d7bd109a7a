// Package git provides an interface for the git operations tiergate needs.
package git

import "context"

// DiffOperations defines the interface for git diff and status operations.
type DiffOperations interface {
	// ChangedFiles returns files changed in the working tree relative to base.
	ChangedFiles(ctx context.Context, base string) ([]string, error)
	// ChangedFilesBetween returns files changed between two refs.
	ChangedFilesBetween(ctx context.Context, ref1, ref2 string) ([]string, error)
	// UntrackedFiles returns files git does not track yet, honouring .gitignore.
	UntrackedFiles(ctx context.Context) ([]string, error)
}

// Runner defines the complete interface for git operations.
type Runner interface {
	DiffOperations
	// TopLevel returns the repository root directory.
	TopLevel(ctx context.Context) (string, error)
	// Run executes an arbitrary git command with the given arguments.
	Run(ctx context.Context, args ...string) (string, error)
}
