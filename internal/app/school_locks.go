package app

import (
	"sort"
	"sync"
)

// schoolLocks is a keyed mutex: one lock per school, created on demand and
// dropped when the last holder releases it.
type schoolLocks struct {
	mu    sync.Mutex
	locks map[string]*schoolLock
}

type schoolLock struct {
	mu   sync.Mutex
	refs int
}

func newSchoolLocks() *schoolLocks {
	return &schoolLocks{locks: make(map[string]*schoolLock)}
}

// Lock acquires the lock for one school and returns its release func.
func (l *schoolLocks) Lock(schoolID string) func() {
	l.mu.Lock()
	lk, ok := l.locks[schoolID]
	if !ok {
		lk = &schoolLock{}
		l.locks[schoolID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, schoolID)
		}
		l.mu.Unlock()
	}
}

// LockAll acquires several school locks in sorted order.
func (l *schoolLocks) LockAll(schoolIDs []string) func() {
	ids := uniqueSorted(schoolIDs)
	releases := make([]func(), 0, len(ids))
	for _, id := range ids {
		releases = append(releases, l.Lock(id))
	}
	return func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
}

func (l *schoolLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
