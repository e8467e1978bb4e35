package overrides

import (
	"path/filepath"
	"testing"

	"github.com/sentryd/sentryd/internal/store"
)

func testEngine(t *testing.T) (*Engine, int64) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "sentryd_test.db")
	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("store.Open(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })

	accountID, err := s.UpsertAccount("user@example.com", "primary", "generic")
	if err != nil {
		t.Fatalf("UpsertAccount() error: %v", err)
	}
	return New(s), accountID
}

func TestResolveNoFlagReturnsClassified(t *testing.T) {
	e, _ := testEngine(t)

	action, overridden, err := e.Resolve("<msg@mail>", store.ActionDeleted)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if overridden || action != store.ActionDeleted {
		t.Errorf("Resolve() = (%v, %v), want (%v, false)", action, overridden, store.ActionDeleted)
	}
}

func TestResolveProtectVetoesDelete(t *testing.T) {
	e, accountID := testEngine(t)

	if err := e.Set("<msg@mail>", store.FlagProtect, "vip sender", accountID); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	action, overridden, err := e.Resolve("<msg@mail>", store.ActionDeleted)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !overridden || action != store.ActionPreserved {
		t.Errorf("Resolve() = (%v, %v), want (%v, true)", action, overridden, store.ActionPreserved)
	}
}

func TestResolveDeleteForcesDeletion(t *testing.T) {
	e, accountID := testEngine(t)

	if err := e.Set("<msg@mail>", store.FlagDelete, "confirmed spam", accountID); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	action, overridden, err := e.Resolve("<msg@mail>", store.ActionPreserved)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !overridden || action != store.ActionDeleted {
		t.Errorf("Resolve() = (%v, %v), want (%v, true)", action, overridden, store.ActionDeleted)
	}
}

func TestSetRejectsUnknownFlagType(t *testing.T) {
	e, accountID := testEngine(t)

	if err := e.Set("<msg@mail>", store.FlagType("BOGUS"), "x", accountID); err == nil {
		t.Error("Set() with unknown flag type: want error, got nil")
	}
}

func TestClearIsIdempotent(t *testing.T) {
	e, accountID := testEngine(t)

	if err := e.Set("<msg@mail>", store.FlagResearch, "watch", accountID); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := e.Clear("<msg@mail>", store.FlagResearch); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if err := e.Clear("<msg@mail>", store.FlagResearch); err != nil {
		t.Errorf("Clear() on already-cleared flag: want nil error, got %v", err)
	}
}
