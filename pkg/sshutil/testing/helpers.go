package testing

import (
	"context"
	"sync"

	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
)

// MockDialer hands out MockClients in place of real SSH connections.
// Set Err to make dialing fail; set Setup to script each new client.
type MockDialer struct {
	mu      sync.Mutex
	Err     error
	Setup   func(client *MockClient)
	clients []*MockClient
}

// NewMockDialer creates a dialer whose clients are configured by setup (may be nil).
func NewMockDialer(setup func(client *MockClient)) *MockDialer {
	return &MockDialer{Setup: setup}
}

// Dial returns a fresh MockClient for creds.Host, or Err if set.
func (d *MockDialer) Dial(ctx context.Context, creds sshutil.Credentials) (sshutil.Executor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Err != nil {
		return nil, d.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := NewMockClient(creds.Host)
	if d.Setup != nil {
		d.Setup(client)
	}
	d.clients = append(d.clients, client)
	return client, nil
}

// SetErr changes the dial error for subsequent dials.
func (d *MockDialer) SetErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Err = err
}

// Dials returns how many clients have been created.
func (d *MockDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.clients)
}

// Last returns the most recently created client, or nil.
func (d *MockDialer) Last() *MockClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.clients) == 0 {
		return nil
	}
	return d.clients[len(d.clients)-1]
}

// Clients returns every client created so far.
func (d *MockDialer) Clients() []*MockClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*MockClient, len(d.clients))
	copy(out, d.clients)
	return out
}
