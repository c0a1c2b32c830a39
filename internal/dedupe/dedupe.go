// package dedupe computes stable identity keys for play events and filters
// them against a bounded window of recently logged keys.
//
// The guarantee is deliberately weak: a play whose key has aged out of the
// retained window is treated as new and re-logged if it reappears. Plays are
// rarely replayed past the retention horizon, so the window trades memory and
// read latency for completeness.
package dedupe

import "fmt"

// Key composes the deterministic identity key for one play event.
func Key(accountID, playedAt, trackID string) string {
	return fmt.Sprintf("%s|%s|%s", accountID, playedAt, trackID)
}

// Window is a membership set built from the most recently appended keys.
type Window struct {
	keys map[string]struct{}
}

// NewWindow builds a Window from the recent-key slice read out of a tenant's
// dedupe section.
func NewWindow(recent []string) *Window {
	keys := make(map[string]struct{}, len(recent))
	for _, k := range recent {
		keys[k] = struct{}{}
	}
	return &Window{keys: keys}
}

// Contains reports whether the key was seen within the retained window.
func (w *Window) Contains(key string) bool {
	_, ok := w.keys[key]
	return ok
}

// Add records a key accepted during the current pass so later items in the
// same page cannot double-log.
func (w *Window) Add(key string) {
	w.keys[key] = struct{}{}
}

// Len returns the number of retained keys.
func (w *Window) Len() int {
	return len(w.keys)
}
