package classifier

import "testing"

func TestCompilePatternsRejectsInvalidRegexp(t *testing.T) {
	_, err := CompilePatterns([]RawPattern{{Category: CategoryScams, Pattern: "(unclosed"}})
	if err == nil {
		t.Fatal("CompilePatterns() = nil error, want an error for an invalid pattern")
	}
}

func TestSubcategoryTaggerRespectsFloor(t *testing.T) {
	patterns, err := CompilePatterns([]RawPattern{
		{Category: CategoryScams, Subcategory: "Prize fraud", Pattern: `(?i)you.?ve won`, Weight: 0.9},
	})
	if err != nil {
		t.Fatalf("CompilePatterns() error = %v", err)
	}
	tagger := NewSubcategoryTagger(patterns)

	if got := tagger.Tag(CategoryScams, "You've won a prize!", 0.9); got != "Prize fraud" {
		t.Errorf("Tag() = %q, want Prize fraud when confidence*weight clears the floor", got)
	}
	if got := tagger.Tag(CategoryScams, "You've won a prize!", 0.3); got != "" {
		t.Errorf("Tag() = %q, want empty when confidence*weight falls under the floor", got)
	}
}

func TestSubcategoryTaggerIgnoresWrongCategory(t *testing.T) {
	patterns, err := CompilePatterns([]RawPattern{
		{Category: CategoryScams, Subcategory: "Prize fraud", Pattern: `(?i)won`, Weight: 0.9},
	})
	if err != nil {
		t.Fatalf("CompilePatterns() error = %v", err)
	}
	tagger := NewSubcategoryTagger(patterns)
	if got := tagger.Tag(CategoryDangerous, "You've won a prize!", 0.9); got != "" {
		t.Errorf("Tag() = %q, want empty when the pattern belongs to a different category", got)
	}
}

func TestRouterRolloutBoundaries(t *testing.T) {
	always := NewRouter(100)
	if !always.ShadowEligible("any-message-id") {
		t.Error("ShadowEligible() = false, want true at 100% rollout")
	}
	never := NewRouter(0)
	if never.ShadowEligible("any-message-id") {
		t.Error("ShadowEligible() = true, want false at 0% rollout")
	}
}

func TestRouterRolloutIsDeterministicPerMessageID(t *testing.T) {
	r := NewRouter(50)
	first := r.ShadowEligible("msg-123")
	for i := 0; i < 5; i++ {
		if r.ShadowEligible("msg-123") != first {
			t.Fatal("ShadowEligible() returned different results for the same message_id across repeated calls")
		}
	}
}

func TestShadowClassifyMapsLegacyCategory(t *testing.T) {
	r := NewRouter(100)
	v2, agrees := r.ShadowClassify(Verdict{Category: CategoryDangerous})
	if v2 != CategoryDangerous || !agrees {
		t.Errorf("ShadowClassify() = (%q, %v), want (%q, true) for a Dangerous legacy verdict", v2, agrees, CategoryDangerous)
	}
}

func TestShadowClassifyTransactionalMapsToMarketing(t *testing.T) {
	r := NewRouter(100)
	v2, _ := r.ShadowClassify(Verdict{Category: CategoryTransactional})
	if v2 != CategoryMarketing {
		t.Errorf("ShadowClassify() v2 category = %q, want %q for a Transactional legacy verdict", v2, CategoryMarketing)
	}
}
