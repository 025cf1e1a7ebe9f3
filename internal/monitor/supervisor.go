package monitor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
)

// DefaultNotifyTimeout bounds a single Notifier call made by a sample loop.
const DefaultNotifyTimeout = 10 * time.Second

// Options configures a Supervisor.
type Options struct {
	Settings Settings
	Dialer   DialFunc // required
	Notifier Notifier
	Logger   logger.Logger

	// Now overrides the clock used by the pool, cache and alert engine.
	Now func() time.Time
}

// userState is everything the supervisor tracks for one monitored user.
type userState struct {
	sessionID string
	userID    UserID
	creds     sshutil.Credentials
	cancel    context.CancelFunc
	startedAt time.Time

	// Guarded by Supervisor.mu.
	interval   time.Duration
	lastSample Sample
	lastCheck  time.Time
}

// SessionInfo is a snapshot of one monitoring session.
type SessionInfo struct {
	ID         string
	UserID     UserID
	Target     string
	StartedAt  time.Time
	Interval   time.Duration
	LastSample Sample
	LastCheck  time.Time
}

// CheckResult is the outcome of a one-off collection.
type CheckResult struct {
	Sample   Sample
	Interval time.Duration
	Critical []Resource
}

// Supervisor owns one sample loop per monitored user.
type Supervisor struct {
	mu       sync.Mutex
	users    map[UserID]*userState
	starting map[UserID]struct{}

	settings  Settings
	pool      *Pool
	cache     *Cache
	collector *Collector
	alerts    *AlertEngine
	intervals IntervalController
	notifier  Notifier
	log       logger.Logger
	now       func() time.Time

	notifyTimeout time.Duration

	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSupervisor wires the pool, cache, collector, interval controller and
// alert engine together.
func NewSupervisor(opts Options) *Supervisor {
	settings := opts.Settings.WithDefaults()

	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, UserID, Batch) error { return nil })
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	pool := NewPool(opts.Dialer, settings, log)
	pool.now = now
	cache := NewCache(settings.CacheTTL)
	cache.now = now
	alerts := NewAlertEngine(settings, log)
	alerts.now = now

	root, cancel := context.WithCancel(context.Background())

	return &Supervisor{
		users:         make(map[UserID]*userState),
		starting:      make(map[UserID]struct{}),
		settings:      settings,
		pool:          pool,
		cache:         cache,
		collector:     NewCollector(pool, cache, settings, log),
		alerts:        alerts,
		intervals:     NewIntervalController(settings.BaseInterval, settings.MinInterval),
		notifier:      notifier,
		log:           log,
		now:           now,
		notifyTimeout: DefaultNotifyTimeout,
		root:          root,
		cancel:        cancel,
	}
}

// Start begins monitoring userID. It returns false when the user is already
// monitored, the credentials are invalid, or the first collection fails.
func (s *Supervisor) Start(ctx context.Context, userID UserID, creds sshutil.Credentials) bool {
	if err := creds.Validate(); err != nil {
		s.log.Warn("user %d: not starting: %s", userID, errors.Summary(err))
		return false
	}
	if s.root.Err() != nil {
		return false
	}

	s.mu.Lock()
	_, running := s.users[userID]
	_, pending := s.starting[userID]
	if running || pending {
		s.mu.Unlock()
		return false
	}
	s.starting[userID] = struct{}{}
	s.mu.Unlock()

	registered := false
	defer func() {
		if !registered {
			s.mu.Lock()
			delete(s.starting, userID)
			s.mu.Unlock()
		}
	}()

	sample, err := s.collector.Collect(ctx, userID, creds)
	if err != nil {
		s.log.Warn("user %d: not starting: %s", userID, errors.Summary(err))
		return false
	}

	s.alerts.Reset(userID)

	loopCtx, cancel := context.WithCancel(s.root)
	st := &userState{
		sessionID:  uuid.New().String(),
		userID:     userID,
		creds:      creds,
		cancel:     cancel,
		startedAt:  s.now(),
		interval:   s.intervals.Next(sample),
		lastSample: sample,
		lastCheck:  s.now(),
	}

	s.mu.Lock()
	if s.root.Err() != nil {
		s.mu.Unlock()
		cancel()
		return false
	}
	delete(s.starting, userID)
	s.users[userID] = st
	registered = true
	s.wg.Add(1)
	s.mu.Unlock()

	s.log.Info("user %d: monitoring %s (session %s)", userID, creds.String(), st.sessionID)
	go s.run(loopCtx, st)
	return true
}

// Stop ends monitoring for userID. It returns false when the user was not
// monitored. The loop is cancelled but not waited for.
func (s *Supervisor) Stop(userID UserID) bool {
	s.mu.Lock()
	st, ok := s.users[userID]
	if ok {
		delete(s.users, userID)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}

	st.cancel()
	s.alerts.Remove(userID)
	s.log.Info("user %d: monitoring stopped (session %s)", userID, st.sessionID)
	return true
}

// IsMonitoring reports whether a session is registered for userID.
func (s *Supervisor) IsMonitoring(userID UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[userID]
	return ok
}

// Sessions lists active sessions ordered by user id.
func (s *Supervisor) Sessions() []SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SessionInfo, 0, len(s.users))
	for _, st := range s.users {
		out = append(out, SessionInfo{
			ID:         st.sessionID,
			UserID:     st.userID,
			Target:     st.creds.String(),
			StartedAt:  st.startedAt,
			Interval:   st.interval,
			LastSample: st.lastSample,
			LastCheck:  st.lastCheck,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Check performs one collection for userID without starting a session.
// The connection is released afterwards unless a session for the user is
// running or starting.
func (s *Supervisor) Check(ctx context.Context, userID UserID, creds sshutil.Credentials) (CheckResult, error) {
	if err := creds.Validate(); err != nil {
		return CheckResult{}, err
	}

	sample, err := s.collector.Collect(ctx, userID, creds)
	if !s.active(userID) {
		s.pool.Close(userID)
	}
	if err != nil {
		return CheckResult{}, err
	}

	res := CheckResult{Sample: sample, Interval: s.intervals.Next(sample)}
	for _, r := range Resources {
		if sample.Value(r) >= s.settings.Thresholds.For(r) {
			res.Critical = append(res.Critical, r)
		}
	}
	return res, nil
}

// Shutdown stops every session, waits for the loops to exit and closes the pool.
func (s *Supervisor) Shutdown() {
	s.cancel()

	s.mu.Lock()
	users := s.users
	s.users = make(map[UserID]*userState)
	s.mu.Unlock()

	for userID, st := range users {
		st.cancel()
		s.alerts.Remove(userID)
	}

	s.wg.Wait()
	s.pool.CloseAll()
}

// Wait blocks until every sample loop has exited.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// run is the sample loop of one session.
func (s *Supervisor) run(ctx context.Context, st *userState) {
	defer s.wg.Done()
	defer s.cleanup(st)

	for {
		if ctx.Err() != nil {
			return
		}

		sample, err := s.collector.Collect(ctx, st.userID, st.creds)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Error("user %d: monitoring stopped: %s", st.userID, errors.Summary(err))
			s.deregister(st)
			s.notify(ctx, st.userID, Batch{Kind: BatchStopped, Reason: errors.Summary(err)})
			return
		}

		if !s.owns(st) {
			return
		}

		for _, batch := range BatchEvents(s.alerts.Evaluate(st.userID, sample)) {
			s.notify(ctx, st.userID, batch)
		}

		interval := s.intervals.Next(sample)
		s.record(st, sample, interval)
		s.log.Debug("user %d: %s, next check in %s", st.userID, sample, interval)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// notify delivers a batch, logging failures. A cancelled loop still gets to
// send within the notify timeout.
func (s *Supervisor) notify(ctx context.Context, userID UserID, batch Batch) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	if err := s.notifier.Notify(nctx, userID, batch); err != nil {
		s.log.Warn("user %d: %s notification failed: %s", userID, batch.Kind, errors.Summary(err))
	}
}

// active reports whether userID has a registered or starting session.
func (s *Supervisor) active(userID UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, running := s.users[userID]
	_, pending := s.starting[userID]
	return running || pending
}

func (s *Supervisor) owns(st *userState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[st.userID] == st
}

func (s *Supervisor) record(st *userState, sample Sample, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.lastSample = sample
	st.lastCheck = s.now()
	st.interval = interval
}

// deregister removes st if it is still the registered session for its user.
func (s *Supervisor) deregister(st *userState) {
	s.mu.Lock()
	owned := s.users[st.userID] == st
	if owned {
		delete(s.users, st.userID)
	}
	s.mu.Unlock()

	if owned {
		st.cancel()
		s.alerts.Remove(st.userID)
	}
}

// cleanup releases the user's connection and cached sample when the loop
// exits, unless a newer session for the same user already took over.
func (s *Supervisor) cleanup(st *userState) {
	if s.active(st.userID) {
		return
	}
	s.pool.Close(st.userID)
	s.cache.Invalidate(st.userID)
}
