package service

import (
	"sync"
)

// stampedeTracker counts concurrent cache misses per key. A count above one means callers
// would have stampeded the upstream had singleflight not collapsed them.
type stampedeTracker struct {
	mu           sync.Mutex     // protects activeMisses
	activeMisses map[string]int // key -> misses in progress
}

func newStampedeTracker() *stampedeTracker {
	return &stampedeTracker{
		activeMisses: make(map[string]int),
	}
}

// RecordMiss increments and returns the in-progress miss count for key.
// Callers defer RecordDone(key).
func (st *stampedeTracker) RecordMiss(key string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.activeMisses[key]++
	return st.activeMisses[key]
}

// RecordDone marks one miss for key as resolved.
func (st *stampedeTracker) RecordDone(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if count, ok := st.activeMisses[key]; ok && count > 0 {
		st.activeMisses[key]--
		if st.activeMisses[key] == 0 {
			delete(st.activeMisses, key)
		}
	}
}
