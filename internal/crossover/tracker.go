package crossover

import (
	"sort"
	"sync"
	"time"
)

// ActiveAlert is a key that already produced an alert.
type ActiveAlert struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
	Since     time.Time `json:"since"`
}

// Tracker remembers which symbol/timeframe pairs have an active alert so a
// crossover is reported once until the MAs converge again.
type Tracker struct {
	mu     sync.RWMutex
	active map[string]ActiveAlert
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]ActiveAlert)}
}

// Key builds the dedup key. Both directions share it.
func Key(symbol, timeframe string) string {
	return symbol + "_" + timeframe
}

// Active reports whether key has an alert.
func (t *Tracker) Active(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.active[key]
	return ok
}

// Activate marks key as alerted. It returns false if it already was.
func (t *Tracker) Activate(key string, dir Direction, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.active[key]; ok {
		return false
	}
	t.active[key] = ActiveAlert{Key: key, Direction: dir, Since: at}
	return true
}

// Reset clears key. It returns whether key was active.
func (t *Tracker) Reset(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[key]
	delete(t.active, key)
	return ok
}

// Len returns the number of active alerts.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.active)
}

// Snapshot returns the active alerts sorted by key.
func (t *Tracker) Snapshot() []ActiveAlert {
	t.mu.RLock()
	out := make([]ActiveAlert, 0, len(t.active))
	for _, a := range t.active {
		out = append(out, a)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Restore loads previously persisted alerts. Entries with the same key are overwritten.
func (t *Tracker) Restore(entries []ActiveAlert) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range entries {
		t.active[e.Key] = e
	}
}
