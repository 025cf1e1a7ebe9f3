package sshutil

import "context"

// Executor runs commands on a remote target.
// Both the real Client and mock implementations satisfy this interface.
//
// This is the only capability the monitoring core needs from a transport,
// which keeps SSH specifics out of the pool and collector and lets tests
// substitute a scripted executor.
type Executor interface {
	// Run executes cmd and returns its decoded, trimmed stdout.
	// Errors carry ErrConnection when the transport failed and ErrExec when
	// the command ran but exited non-zero.
	Run(ctx context.Context, cmd string) (string, error)

	// Close closes the underlying connection.
	Close() error

	// GetHost returns the original host/alias used to connect.
	GetHost() string
}

var _ Executor = (*Client)(nil)
