package testing

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
	// Delay holds the response back, honoring context cancellation.
	Delay time.Duration
}

type commandRule struct {
	pattern string
	re      *regexp.Regexp
	resp    CommandResponse
}

// MockClient simulates a remote executor for testing.
// Responses are matched first by exact command, then by regex pattern in
// registration order. Unmatched commands succeed with empty output, except
// for the platform probe and liveness probe which answer like a Linux host.
type MockClient struct {
	mu       sync.Mutex
	host     string
	closed   bool
	broken   bool
	platform string
	rules    []commandRule
	calls    []string
}

var _ sshutil.Executor = (*MockClient)(nil)

// NewMockClient creates a new mock client that reports itself as a Linux host.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:     host,
		platform: "Linux",
	}
}

// Run executes cmd against the registered responses.
func (m *MockClient) Run(ctx context.Context, cmd string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, cmd)
	if m.closed || m.broken {
		m.mu.Unlock()
		return "", errors.WrapWithCode(stderrors.New("connection closed"), errors.ErrConnection,
			"Failed to create SSH session", "")
	}
	resp, ok := m.match(cmd)
	m.mu.Unlock()

	if !ok {
		return m.builtin(cmd), nil
	}

	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", errors.WrapWithCode(ctx.Err(), errors.ErrConnection,
				fmt.Sprintf("Command timed out on %s", m.host), "")
		case <-timer.C:
		}
	}

	if resp.Error != nil {
		return "", resp.Error
	}
	if resp.ExitCode != 0 {
		return "", errors.New(errors.ErrExec,
			fmt.Sprintf("Command exited with status %d: %s", resp.ExitCode, cmd),
			strings.TrimSpace(string(resp.Stderr)))
	}
	return strings.TrimSpace(string(resp.Stdout)), nil
}

// match must be called with m.mu held.
func (m *MockClient) match(cmd string) (CommandResponse, bool) {
	for _, r := range m.rules {
		if r.pattern == cmd {
			return r.resp, true
		}
	}
	for _, r := range m.rules {
		if r.re != nil && r.re.MatchString(cmd) {
			return r.resp, true
		}
	}
	return CommandResponse{}, false
}

// builtin answers the handful of commands every target is expected to support.
func (m *MockClient) builtin(cmd string) string {
	switch {
	case strings.HasPrefix(cmd, "echo "):
		return strings.Trim(strings.TrimPrefix(cmd, "echo "), `"'`)
	case strings.HasPrefix(cmd, "uname"):
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.platform
	default:
		return ""
	}
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// SetCommandResponse registers a canned response for a command pattern.
// The pattern can be an exact string or a regex pattern.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule := commandRule{pattern: pattern, resp: resp}
	if re, err := regexp.Compile(pattern); err == nil {
		rule.re = re
	}
	for i, r := range m.rules {
		if r.pattern == pattern {
			m.rules[i] = rule
			return
		}
	}
	m.rules = append(m.rules, rule)
}

// SetPlatform sets what the platform probe reports ("Linux", "Darwin", or a
// Windows `ver` banner).
func (m *MockClient) SetPlatform(uname string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.platform = uname
}

// Break makes every subsequent Run fail as if the connection dropped,
// without marking the client closed.
func (m *MockClient) Break() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broken = true
}

// IsClosed reports whether Close has been called.
func (m *MockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Calls returns the commands run so far, in order.
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times a command containing substr was run.
func (m *MockClient) CallCount(substr string) int {
	n := 0
	for _, c := range m.Calls() {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}
