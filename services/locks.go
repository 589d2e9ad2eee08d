package services

import "sync"

// applicationLocks serializes all state transitions per application. Decision
// submission and the deadline sweep take the same lock, so a decision landing
// on the deadline boundary is deterministically accepted or rejected, never
// both. Entries are never removed; the table grows with the number of
// applications touched since process start.
var applicationLocks = &lockTable{locks: make(map[int]*sync.Mutex)}

type lockTable struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func (t *lockTable) forApplication(applicationID int) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[applicationID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[applicationID] = l
	}
	return l
}
