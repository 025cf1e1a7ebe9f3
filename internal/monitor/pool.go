package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
)

// DialFunc opens a remote executor for the given credentials.
type DialFunc func(ctx context.Context, creds sshutil.Credentials) (sshutil.Executor, error)

// SSHDialer returns a DialFunc backed by real SSH connections.
func SSHDialer(opts sshutil.DialOptions) DialFunc {
	return func(ctx context.Context, creds sshutil.Credentials) (sshutil.Executor, error) {
		client, err := sshutil.Dial(ctx, creds, opts)
		if err != nil {
			// Avoid handing back a typed nil inside the interface.
			return nil, err
		}
		return client, nil
	}
}

// Conn is a pooled connection for one user. The metric command set is
// detected once per connection and remembered here.
type Conn struct {
	UserID    UserID
	Exec      sshutil.Executor
	CreatedAt time.Time

	mu       sync.Mutex
	commands MetricCommandSet
}

// Run executes cmd on the underlying executor.
func (c *Conn) Run(ctx context.Context, cmd string) (string, error) {
	return c.Exec.Run(ctx, cmd)
}

// Commands returns the command set chosen for this connection, or nil before detection.
func (c *Conn) Commands() MetricCommandSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commands
}

// SetCommands records the command set for the lifetime of the connection.
func (c *Conn) SetCommands(set MetricCommandSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = set
}

// Platform returns the detected platform, or PlatformUnknown before detection.
func (c *Conn) Platform() Platform {
	if set := c.Commands(); set != nil {
		return set.Platform()
	}
	return PlatformUnknown
}

// Pool keeps one warm connection per user between collection cycles.
// Entries idle longer than the idle timeout are closed on the next Acquire,
// and a reused entry must answer a liveness probe first.
//
// A loop sleeping a full base interval leaves its entry idle for slightly
// longer than that interval. With the default idle timeout equal to the
// default base interval, quiet hosts are therefore redialed (and their
// platform detected again) every cycle; only loops on a shortened interval
// reuse their connection. Raise pool_idle_timeout above base_interval to keep
// quiet hosts connected.
type Pool struct {
	mu           sync.Mutex
	entries      map[UserID]*poolEntry
	dial         DialFunc
	idleTimeout  time.Duration
	probeTimeout time.Duration
	dialTimeout  time.Duration
	log          logger.Logger
	now          func() time.Time
}

// poolEntry holds a connection and its metadata.
type poolEntry struct {
	conn     *Conn
	creds    sshutil.Credentials
	lastUsed time.Time
}

// NewPool creates a connection pool. Settings supply the idle, probe and dial timeouts.
func NewPool(dial DialFunc, settings Settings, log logger.Logger) *Pool {
	settings = settings.WithDefaults()
	if log == nil {
		log = logger.Noop()
	}
	return &Pool{
		entries:      make(map[UserID]*poolEntry),
		dial:         dial,
		idleTimeout:  settings.PoolIdleTimeout,
		probeTimeout: settings.ProbeTimeout,
		dialTimeout:  settings.DialTimeout,
		log:          log,
		now:          time.Now,
	}
}

// Acquire returns a usable connection for userID and whether it was just created.
// Failure to establish a session is a CONNECTION error.
func (p *Pool) Acquire(ctx context.Context, userID UserID, creds sshutil.Credentials) (*Conn, bool, error) {
	p.purgeIdle()

	p.mu.Lock()
	entry, exists := p.entries[userID]
	p.mu.Unlock()

	if exists {
		if entry.creds == creds && p.isAlive(ctx, entry.conn) {
			p.mu.Lock()
			if p.entries[userID] == entry {
				entry.lastUsed = p.now()
			}
			p.mu.Unlock()
			return entry.conn, false, nil
		}
		p.log.Debug("recreating connection for user %d", userID)
		p.removeEntry(userID, entry)
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	exec, err := p.dial(dialCtx, creds)
	if err != nil {
		if errors.IsCode(err, errors.ErrConnection) {
			return nil, false, err
		}
		return nil, false, errors.WrapWithCode(err, errors.ErrConnection,
			fmt.Sprintf("Couldn't connect to %s", creds.Host),
			"Check that the host is reachable and the credentials are correct.")
	}

	now := p.now()
	fresh := &poolEntry{
		conn:     &Conn{UserID: userID, Exec: exec, CreatedAt: now},
		creds:    creds,
		lastUsed: now,
	}

	p.mu.Lock()
	replaced := p.entries[userID]
	p.entries[userID] = fresh
	p.mu.Unlock()

	if replaced != nil {
		p.closeConn(userID, replaced.conn)
	}

	return fresh.conn, true, nil
}

// Return marks the user's connection as used just now.
func (p *Pool) Return(userID UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.entries[userID]; ok {
		entry.lastUsed = p.now()
	}
}

// Close closes and forgets the user's connection. Safe to call repeatedly.
func (p *Pool) Close(userID UserID) {
	p.mu.Lock()
	entry, ok := p.entries[userID]
	if ok {
		delete(p.entries, userID)
	}
	p.mu.Unlock()

	if ok {
		p.closeConn(userID, entry.conn)
	}
}

// CloseAll closes every connection in the pool and clears it.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[UserID]*poolEntry)
	p.mu.Unlock()

	for userID, entry := range entries {
		p.closeConn(userID, entry.conn)
	}
}

// Size returns the number of connections in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// purgeIdle closes every entry idle longer than the idle timeout.
func (p *Pool) purgeIdle() {
	now := p.now()
	var stale []*poolEntry

	p.mu.Lock()
	for userID, entry := range p.entries {
		if now.Sub(entry.lastUsed) > p.idleTimeout {
			stale = append(stale, entry)
			delete(p.entries, userID)
		}
	}
	p.mu.Unlock()

	for _, entry := range stale {
		p.log.Debug("closing idle connection for user %d", entry.conn.UserID)
		p.closeConn(entry.conn.UserID, entry.conn)
	}
}

// removeEntry drops entry if it is still the registered one and closes it.
func (p *Pool) removeEntry(userID UserID, entry *poolEntry) {
	p.mu.Lock()
	if p.entries[userID] == entry {
		delete(p.entries, userID)
	}
	p.mu.Unlock()
	p.closeConn(userID, entry.conn)
}

// isAlive runs the liveness probe within the probe timeout.
func (p *Pool) isAlive(ctx context.Context, conn *Conn) bool {
	if conn == nil || conn.Exec == nil {
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	out, err := conn.Run(probeCtx, LivenessCommand)
	if err != nil {
		p.log.Debug("liveness probe failed for user %d: %s", conn.UserID, errors.Summary(err))
		return false
	}
	return strings.TrimSpace(out) == "ok"
}

// closeConn closes a connection, logging instead of returning failures.
func (p *Pool) closeConn(userID UserID, conn *Conn) {
	if conn == nil || conn.Exec == nil {
		return
	}
	if err := conn.Exec.Close(); err != nil {
		p.log.Debug("close connection for user %d: %v", userID, err)
	}
}
