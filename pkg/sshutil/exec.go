package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Run executes cmd on the remote host and returns its trimmed stdout.
// A non-zero exit status is reported as an ErrExec error carrying stderr.
// If ctx expires first, the session is closed and an ErrConnection error
// wrapping ctx.Err() is returned.
func (c *Client) Run(ctx context.Context, cmd string) (string, error) {
	if c == nil || c.Client == nil {
		return "", errors.New(errors.ErrConnection,
			"No SSH connection",
			"The connection was closed before the command ran.")
	}

	select {
	case <-ctx.Done():
		return "", errors.WrapWithCode(ctx.Err(), errors.ErrConnection,
			"Command cancelled before it started", "")
	default:
	}

	session, err := c.Client.NewSession()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConnection,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- session.Run(cmd)
	}()

	select {
	case <-ctx.Done():
		_ = session.Close()
		return "", errors.WrapWithCode(ctx.Err(), errors.ErrConnection,
			fmt.Sprintf("Command timed out on %s", c.Host),
			"The host may be overloaded or the connection stalled.")
	case err := <-resultCh:
		if err != nil {
			var exitErr *ssh.ExitError
			if stderrors.As(err, &exitErr) {
				return "", errors.WrapWithCode(err, errors.ErrExec,
					fmt.Sprintf("Command exited with status %d: %s", exitErr.ExitStatus(), cmd),
					strings.TrimSpace(stderrBuf.String()))
			}
			return "", errors.WrapWithCode(err, errors.ErrConnection,
				fmt.Sprintf("Failed to execute command: %s", cmd),
				"Connection may have been closed. Try reconnecting.")
		}
	}

	return strings.TrimSpace(stdoutBuf.String()), nil
}
