package store

import "testing"

func TestSetAndGetFlags(t *testing.T) {
	s := testStore(t)
	accountID := seedAccount(t, s)

	if _, err := s.SetFlag("<msg@mail>", FlagProtect, "known vendor", accountID); err != nil {
		t.Fatalf("SetFlag() error: %v", err)
	}

	flags, err := s.GetFlags("<msg@mail>")
	if err != nil {
		t.Fatalf("GetFlags() error: %v", err)
	}
	if len(flags) != 1 || flags[0].FlagType != FlagProtect {
		t.Errorf("GetFlags() = %+v, want one FlagProtect", flags)
	}
}

func TestSetFlagUpsertsSameType(t *testing.T) {
	s := testStore(t)
	accountID := seedAccount(t, s)

	if _, err := s.SetFlag("<msg@mail>", FlagResearch, "first reason", accountID); err != nil {
		t.Fatalf("SetFlag(1) error: %v", err)
	}
	if _, err := s.SetFlag("<msg@mail>", FlagResearch, "updated reason", accountID); err != nil {
		t.Fatalf("SetFlag(2) error: %v", err)
	}

	flags, err := s.GetFlags("<msg@mail>")
	if err != nil {
		t.Fatalf("GetFlags() error: %v", err)
	}
	if len(flags) != 1 {
		t.Fatalf("GetFlags() returned %d rows, want 1 (upsert on same flag_type)", len(flags))
	}
	if flags[0].Reason != "updated reason" {
		t.Errorf("GetFlags()[0].Reason = %q, want %q", flags[0].Reason, "updated reason")
	}
}

func TestDistinctFlagTypesCoexist(t *testing.T) {
	s := testStore(t)
	accountID := seedAccount(t, s)

	if _, err := s.SetFlag("<msg@mail>", FlagResearch, "investigate", accountID); err != nil {
		t.Fatalf("SetFlag(research) error: %v", err)
	}
	if _, err := s.SetFlag("<msg@mail>", FlagDelete, "confirmed spam", accountID); err != nil {
		t.Fatalf("SetFlag(delete) error: %v", err)
	}

	flags, err := s.GetFlags("<msg@mail>")
	if err != nil {
		t.Fatalf("GetFlags() error: %v", err)
	}
	if len(flags) != 2 {
		t.Fatalf("GetFlags() returned %d rows, want 2 (distinct flag_type rows coexist)", len(flags))
	}

	winner, err := s.Evaluate("<msg@mail>")
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if winner == nil || winner.FlagType != FlagDelete {
		t.Errorf("Evaluate() = %+v, want FlagDelete (outranks RESEARCH)", winner)
	}
}

func TestEvaluateProtectBeatsDelete(t *testing.T) {
	s := testStore(t)
	accountID := seedAccount(t, s)

	if _, err := s.SetFlag("<msg@mail>", FlagDelete, "classifier override", accountID); err != nil {
		t.Fatalf("SetFlag(delete) error: %v", err)
	}
	if _, err := s.SetFlag("<msg@mail>", FlagProtect, "vip sender", accountID); err != nil {
		t.Fatalf("SetFlag(protect) error: %v", err)
	}

	winner, err := s.Evaluate("<msg@mail>")
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if winner == nil || winner.FlagType != FlagProtect {
		t.Errorf("Evaluate() = %+v, want FlagProtect (vetoes DELETE)", winner)
	}
}

func TestEvaluateNoFlags(t *testing.T) {
	s := testStore(t)

	winner, err := s.Evaluate("<never-flagged@mail>")
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if winner != nil {
		t.Errorf("Evaluate() = %+v, want nil", winner)
	}
}

func TestClearFlag(t *testing.T) {
	s := testStore(t)
	accountID := seedAccount(t, s)

	if _, err := s.SetFlag("<msg@mail>", FlagProtect, "reason", accountID); err != nil {
		t.Fatalf("SetFlag() error: %v", err)
	}
	if _, err := s.SetFlag("<msg@mail>", FlagResearch, "reason", accountID); err != nil {
		t.Fatalf("SetFlag() error: %v", err)
	}
	if err := s.ClearFlag("<msg@mail>", FlagProtect); err != nil {
		t.Fatalf("ClearFlag() error: %v", err)
	}

	flags, err := s.GetFlags("<msg@mail>")
	if err != nil {
		t.Fatalf("GetFlags() error: %v", err)
	}
	if len(flags) != 1 || flags[0].FlagType != FlagResearch {
		t.Errorf("GetFlags() after clearing PROTECT = %+v, want only RESEARCH left", flags)
	}
}

func TestClearFlagMissingIsNotError(t *testing.T) {
	s := testStore(t)

	if err := s.ClearFlag("<never-flagged@mail>", FlagDelete); err != nil {
		t.Errorf("ClearFlag(missing) error: %v, want nil", err)
	}
}

func TestResolveActionPrecedence(t *testing.T) {
	cases := []struct {
		name       string
		flag       *OverrideFlag
		classified Action
		want       Action
		forced     bool
	}{
		{"no flag", nil, ActionDeleted, ActionDeleted, false},
		{"protect vetoes delete", &OverrideFlag{FlagType: FlagProtect}, ActionDeleted, ActionPreserved, true},
		{"force delete", &OverrideFlag{FlagType: FlagDelete}, ActionPreserved, ActionDeleted, true},
		{"research advisory keeps classified action", &OverrideFlag{FlagType: FlagResearch}, ActionPreserved, ActionPreserved, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, forced := ResolveAction(tc.flag, tc.classified)
			if got != tc.want || forced != tc.forced {
				t.Errorf("ResolveAction() = (%v, %v), want (%v, %v)", got, forced, tc.want, tc.forced)
			}
		})
	}
}
