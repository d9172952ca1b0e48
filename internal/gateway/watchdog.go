package gateway

import (
	"sync"
	"time"
)

// Watchdog enforces a per-query deadline. Each in-flight query arms a timer
// keyed by its id; if the timer fires before End, the query's expire function
// runs exactly once.
type Watchdog struct {
	timeout     time.Duration
	mu          sync.Mutex
	timers      map[string]*time.Timer
	timerIDs    map[string]uint64
	nextTimerID uint64
}

// NewWatchdog creates a watchdog with the given per-query timeout.
func NewWatchdog(timeout time.Duration) *Watchdog {
	return &Watchdog{
		timeout:  timeout,
		timers:   make(map[string]*time.Timer),
		timerIDs: make(map[string]uint64),
	}
}

// Begin arms the deadline for a query. A second Begin with the same id
// replaces the earlier timer.
func (w *Watchdog) Begin(id string, expire func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[id]; ok {
		t.Stop()
	}

	w.nextTimerID++
	timerID := w.nextTimerID
	timer := time.AfterFunc(w.timeout, func() {
		if w.claim(id, timerID) {
			expire()
		}
	})
	w.timers[id] = timer
	w.timerIDs[id] = timerID
}

// End disarms the deadline for a query.
func (w *Watchdog) End(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[id]; ok {
		t.Stop()
		delete(w.timers, id)
		delete(w.timerIDs, id)
	}
}

// claim checks that the fired timer is still the current one for id, so a
// timer racing End or a replacement never expires a later query.
func (w *Watchdog) claim(id string, timerID uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	currentID, ok := w.timerIDs[id]
	if !ok || currentID != timerID {
		return false
	}
	delete(w.timers, id)
	delete(w.timerIDs, id)
	return true
}

// Stop cancels all timers.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.timerIDs = make(map[string]uint64)
}
