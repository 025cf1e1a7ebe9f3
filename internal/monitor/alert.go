package monitor

import (
	"math"
	"sync"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/logger"
)

// alertState is the hysteresis state of one resource for one user.
type alertState struct {
	critical    bool
	alerted     bool
	consecutive int
	lastAlert   time.Time
	lastValue   float64
	seen        bool
}

// AlertStateSnapshot is a read-only copy of a resource's alert state.
type AlertStateSnapshot struct {
	Critical    bool
	Alerted     bool
	Consecutive int
	LastAlert   time.Time
	LastValue   float64
}

// AlertEngine turns samples into debounced raise and resolve events.
//
// Per resource, a critical reading that jumps more than the spike delta away
// from the previous reading is ignored for that cycle. Otherwise a raise needs
// FalsePositiveThreshold consecutive critical readings. The first raise of an
// episode goes out at once; while the resource stays critical it is repeated
// at most once per cooldown. Recovery resolves at once and ends the episode.
type AlertEngine struct {
	mu         sync.Mutex
	states     map[UserID]map[Resource]*alertState
	thresholds Thresholds
	debounce   int
	cooldown   time.Duration
	spikeDelta float64
	log        logger.Logger
	now        func() time.Time
}

// NewAlertEngine creates an engine configured from settings.
func NewAlertEngine(settings Settings, log logger.Logger) *AlertEngine {
	settings = settings.WithDefaults()
	if log == nil {
		log = logger.Noop()
	}
	return &AlertEngine{
		states:     make(map[UserID]map[Resource]*alertState),
		thresholds: settings.Thresholds,
		debounce:   settings.FalsePositiveThreshold,
		cooldown:   settings.AlertCooldown,
		spikeDelta: settings.SpikeRejectionDelta,
		log:        log,
		now:        time.Now,
	}
}

// Evaluate feeds one sample for userID through every resource's state machine
// and returns the events of this cycle in resource order.
func (e *AlertEngine) Evaluate(userID UserID, sample Sample) []AlertEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	states, ok := e.states[userID]
	if !ok {
		states = make(map[Resource]*alertState, len(Resources))
		e.states[userID] = states
	}

	now := e.now()
	var events []AlertEvent

	for _, r := range Resources {
		st, ok := states[r]
		if !ok {
			st = &alertState{}
			states[r] = st
		}

		value := sample.Value(r)
		threshold := e.thresholds.For(r)
		critical := value >= threshold

		if critical && st.seen && math.Abs(value-st.lastValue) > e.spikeDelta {
			e.log.Debug("user %d: ignoring %s spike %.1f -> %.1f", userID, r, st.lastValue, value)
			st.lastValue = value
			continue
		}
		st.lastValue = value
		st.seen = true

		if critical {
			st.consecutive++
			if st.consecutive >= e.debounce && (!st.alerted || e.cooledDown(st, now)) {
				ev := Raised(r, value, threshold)
				ev.At = now
				events = append(events, ev)
				st.lastAlert = now
				st.alerted = true
			}
		} else {
			if st.critical {
				ev := Resolved(r, value)
				ev.At = now
				events = append(events, ev)
			}
			st.consecutive = 0
			st.alerted = false
		}

		st.critical = critical
	}

	return events
}

func (e *AlertEngine) cooledDown(st *alertState, now time.Time) bool {
	return st.lastAlert.IsZero() || now.Sub(st.lastAlert) >= e.cooldown
}

// Reset clears all state for userID, as at the start of a session.
func (e *AlertEngine) Reset(userID UserID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states[userID] = make(map[Resource]*alertState, len(Resources))
}

// Remove forgets userID entirely.
func (e *AlertEngine) Remove(userID UserID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.states, userID)
}

// State returns a copy of the state for (userID, r).
func (e *AlertEngine) State(userID UserID, r Resource) (AlertStateSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[userID][r]
	if !ok {
		return AlertStateSnapshot{}, false
	}
	return AlertStateSnapshot{
		Critical:    st.critical,
		Alerted:     st.alerted,
		Consecutive: st.consecutive,
		LastAlert:   st.lastAlert,
		LastValue:   st.lastValue,
	}, true
}

// Tracked reports whether any state exists for userID.
func (e *AlertEngine) Tracked(userID UserID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.states[userID]
	return ok
}
