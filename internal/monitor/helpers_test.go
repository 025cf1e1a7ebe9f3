package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
	sshtesting "github.com/rileyhilliard/hostwatch/pkg/sshutil/testing"
)

var testCreds = sshutil.Credentials{Host: "web-1.example.com", User: "deploy", Password: "secret"}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// linuxHost scripts a Linux target reporting fixed metric outputs.
func linuxHost(cpu, ram, disk string) func(*sshtesting.MockClient) {
	return func(c *sshtesting.MockClient) {
		c.SetCommandResponse("^vmstat", sshtesting.CommandResponse{Stdout: []byte(cpu)})
		c.SetCommandResponse("^free", sshtesting.CommandResponse{Stdout: []byte(ram)})
		c.SetCommandResponse("^df -P", sshtesting.CommandResponse{Stdout: []byte(disk)})
	}
}

func dialFunc(d *sshtesting.MockDialer) DialFunc {
	return func(ctx context.Context, creds sshutil.Credentials) (sshutil.Executor, error) {
		return d.Dial(ctx, creds)
	}
}

// recordingNotifier collects every batch it is handed.
type recordingNotifier struct {
	mu      sync.Mutex
	batches map[UserID][]Batch
	err     error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{batches: make(map[UserID][]Batch)}
}

func (n *recordingNotifier) Notify(_ context.Context, userID UserID, batch Batch) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches[userID] = append(n.batches[userID], batch)
	return n.err
}

func (n *recordingNotifier) For(userID UserID) []Batch {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Batch, len(n.batches[userID]))
	copy(out, n.batches[userID])
	return out
}

func (n *recordingNotifier) Count(userID UserID, kind BatchKind) int {
	c := 0
	for _, b := range n.For(userID) {
		if b.Kind == kind {
			c++
		}
	}
	return c
}
