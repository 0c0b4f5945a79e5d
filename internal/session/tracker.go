// Package session wraps the matching pipeline in a conversation: it tracks
// whether a conversation has delivered its candidates, routes feedback, and
// persists the transcript and the structured result behind it.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Delivery is the two-phase state of a conversation's candidate batch.
type Delivery string

const (
	DeliveryIdle       Delivery = "idle"
	DeliveryPending    Delivery = "pending"
	DeliveryConfirmed  Delivery = "confirmed"
	DeliveryRolledBack Delivery = "rolled_back"
)

// InputMode says where the next message from the user goes.
type InputMode string

const (
	// InputPrimary runs the matching pipeline.
	InputPrimary InputMode = "primary"
	// InputSuppressed means candidates were delivered; the user should start
	// a new conversation or switch to feedback mode.
	InputSuppressed InputMode = "suppressed"
	// InputFeedback routes messages to the feedback responder.
	InputFeedback InputMode = "feedback"
)

// State is a snapshot of one conversation's session flags.
type State struct {
	Delivery     Delivery  `json:"delivery"`
	Delivered    bool      `json:"delivered"`
	FeedbackMode bool      `json:"feedback_mode"`
	InputMode    InputMode `json:"input_mode"`
}

type flags struct {
	delivery     Delivery
	feedbackMode bool
	seen         time.Time
}

// restorable reports whether the flags can be rebuilt from storage: a pending
// search and feedback mode exist only in memory.
func (f *flags) restorable() bool {
	return f.delivery != DeliveryPending && !f.feedbackMode
}

func (f flags) snapshot() State {
	delivered := f.delivery == DeliveryConfirmed
	mode := InputPrimary
	switch {
	case f.feedbackMode:
		mode = InputFeedback
	case delivered:
		mode = InputSuppressed
	}
	return State{Delivery: f.delivery, Delivered: delivered, FeedbackMode: f.feedbackMode, InputMode: mode}
}

const (
	// DefaultTrackerLimit is the entry count at which restorable entries
	// start being evicted.
	DefaultTrackerLimit = 1024
	// trackerIdleAfter is how long an entry must go untouched before it may
	// be evicted.
	trackerIdleAfter = 10 * time.Minute
)

// Tracker holds session flags per conversation. It is safe for concurrent use.
// Once it reaches its limit, entries that storage can restore and
// that have been idle for a while are dropped; the Manager hydrates them
// again on next use. Pending searches and feedback mode are always kept.
type Tracker struct {
	mu     sync.Mutex
	states map[uuid.UUID]*flags
	limit  int
	now    func() time.Time
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[uuid.UUID]*flags),
		limit:  DefaultTrackerLimit,
		now:    time.Now,
	}
}

func (t *Tracker) get(id uuid.UUID) *flags {
	return t.put(id, DeliveryIdle)
}

// put returns the flags for id, creating them in phase d when missing.
func (t *Tracker) put(id uuid.UUID, d Delivery) *flags {
	now := t.now()
	f, ok := t.states[id]
	if !ok {
		t.evict(now)
		f = &flags{delivery: d}
		t.states[id] = f
	}
	f.seen = now
	return f
}

func (t *Tracker) evict(now time.Time) {
	if len(t.states) < t.limit {
		return
	}
	for id, f := range t.states {
		if f.restorable() && now.Sub(f.seen) >= trackerIdleAfter {
			delete(t.states, id)
		}
	}
}

// Len returns the number of tracked conversations.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.states)
}

// Known reports whether the tracker has seen the conversation.
func (t *Tracker) Known(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.states[id]
	return ok
}

// Hydrate seeds the delivery phase of a conversation the tracker has not
// seen yet. Known conversations are left alone.
func (t *Tracker) Hydrate(id uuid.UUID, d Delivery) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.put(id, d).snapshot()
}

// State returns the current flags of a conversation.
func (t *Tracker) State(id uuid.UUID) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(id).snapshot()
}

// BeginSearch moves the conversation to pending, clearing delivered right
// away. It returns false when a search is already pending.
func (t *Tracker) BeginSearch(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	f := t.get(id)
	if f.delivery == DeliveryPending {
		return false
	}
	f.delivery = DeliveryPending
	return true
}

// Confirm marks a pending search as delivered.
func (t *Tracker) Confirm(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f := t.get(id); f.delivery == DeliveryPending {
		f.delivery = DeliveryConfirmed
	}
}

// Rollback marks a pending search as failed; the user may retry.
func (t *Tracker) Rollback(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f := t.get(id); f.delivery == DeliveryPending {
		f.delivery = DeliveryRolledBack
	}
}

// SetFeedbackMode toggles feedback mode. Delivery is unaffected.
func (t *Tracker) SetFeedbackMode(id uuid.UUID, on bool) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	f := t.get(id)
	f.feedbackMode = on
	return f.snapshot()
}

// Forget drops a conversation's flags.
func (t *Tracker) Forget(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, id)
}
