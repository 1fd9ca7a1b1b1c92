package app

import (
	"sync"
	"testing"
	"time"
)

func TestSchoolLocks_SerializesSameSchool(t *testing.T) {
	locks := newSchoolLocks()
	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("SCH-001")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("expected at most one holder at a time, saw %d", maxSeen)
	}
	if locks.size() != 0 {
		t.Errorf("expected locks to be released, %d remain", locks.size())
	}
}

func TestSchoolLocks_DifferentSchoolsDoNotBlock(t *testing.T) {
	locks := newSchoolLocks()
	unlockA := locks.Lock("SCH-001")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("SCH-002")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for another school blocked")
	}
}

func TestSchoolLocks_LockAllDedupes(t *testing.T) {
	locks := newSchoolLocks()
	unlock := locks.LockAll([]string{"SCH-002", "SCH-001", "SCH-002", ""})
	if locks.size() != 2 {
		t.Errorf("expected 2 held locks, got %d", locks.size())
	}
	unlock()
	if locks.size() != 0 {
		t.Errorf("expected all locks released, %d remain", locks.size())
	}
}
