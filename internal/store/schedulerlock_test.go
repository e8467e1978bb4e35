package store

import "testing"

func TestAcquireSchedulerLockExclusive(t *testing.T) {
	s := testStore(t)

	acquired, err := s.AcquireSchedulerLock("batch_run", "worker-a")
	if err != nil {
		t.Fatalf("AcquireSchedulerLock(a) error: %v", err)
	}
	if !acquired {
		t.Fatal("AcquireSchedulerLock(a) = false, want true on first attempt")
	}

	acquired, err = s.AcquireSchedulerLock("batch_run", "worker-b")
	if err != nil {
		t.Fatalf("AcquireSchedulerLock(b) error: %v", err)
	}
	if acquired {
		t.Error("AcquireSchedulerLock(b) = true, want false while worker-a holds the lock")
	}
}

func TestReleaseSchedulerLockAllowsReacquire(t *testing.T) {
	s := testStore(t)

	if _, err := s.AcquireSchedulerLock("batch_run", "worker-a"); err != nil {
		t.Fatalf("AcquireSchedulerLock() error: %v", err)
	}
	if err := s.ReleaseSchedulerLock("batch_run", "worker-a"); err != nil {
		t.Fatalf("ReleaseSchedulerLock() error: %v", err)
	}

	acquired, err := s.AcquireSchedulerLock("batch_run", "worker-b")
	if err != nil {
		t.Fatalf("AcquireSchedulerLock(b) error: %v", err)
	}
	if !acquired {
		t.Error("AcquireSchedulerLock(b) = false, want true after release")
	}
}
