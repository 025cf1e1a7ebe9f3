package doctor

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// FailReason categorizes why a connection attempt failed.
type FailReason int

const (
	FailUnknown FailReason = iota
	FailTimeout
	FailRefused
	FailUnreachable
	FailDNS
	FailAuth
	FailHostKey
)

// String returns a human-readable description of the failure reason.
func (r FailReason) String() string {
	switch r {
	case FailTimeout:
		return "connection timed out"
	case FailRefused:
		return "connection refused"
	case FailUnreachable:
		return "host unreachable"
	case FailDNS:
		return "hostname not found"
	case FailAuth:
		return "authentication failed"
	case FailHostKey:
		return "host key verification failed"
	default:
		return "unknown error"
	}
}

// Suggestion returns the usual fix for the failure reason.
func (r FailReason) Suggestion() string {
	switch r {
	case FailTimeout:
		return "Check the host is reachable: ping the hostname, or raise ssh.connect_timeout"
	case FailRefused:
		return "Check the SSH server is running and listening on the configured port"
	case FailUnreachable:
		return "Check your network route to the host"
	case FailDNS:
		return "Check the hostname spelling and your SSH config aliases"
	case FailAuth:
		return "Check the target's user, password or key_file, or deploy a key: ssh-copy-id <host>"
	case FailHostKey:
		return "Accept the host key: ssh -o StrictHostKeyChecking=accept-new <host> exit"
	default:
		return "Run with --verbose for details"
	}
}

// Classify maps a dial error to a FailReason by inspecting the error chain.
// Suggestions attached to structured errors are ignored.
func Classify(err error) FailReason {
	if err == nil {
		return FailUnknown
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return FailTimeout
	}

	var text strings.Builder
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		msg := e.Error()
		if hwErr, ok := e.(*errors.Error); ok {
			msg = hwErr.Message
		}
		text.WriteString(strings.ToLower(msg))
		text.WriteByte(' ')
	}
	errStr := text.String()

	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return FailTimeout
	case strings.Contains(errStr, "connection refused"):
		return FailRefused
	case strings.Contains(errStr, "no route to host"),
		strings.Contains(errStr, "network is unreachable"),
		strings.Contains(errStr, "host is down"):
		return FailUnreachable
	case strings.Contains(errStr, "no such host"):
		return FailDNS
	case strings.Contains(errStr, "unable to authenticate"),
		strings.Contains(errStr, "no supported methods"),
		strings.Contains(errStr, "permission denied"),
		strings.Contains(errStr, "authentication failed"):
		return FailAuth
	case strings.Contains(errStr, "host key"):
		return FailHostKey
	}
	return FailUnknown
}
