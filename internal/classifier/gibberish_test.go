package classifier

import "testing"

func TestIsGibberishDomainShortLabelNeverFlagged(t *testing.T) {
	if IsGibberishDomain("ok.com") {
		t.Error("IsGibberishDomain() = true for a short label, want false")
	}
}

func TestIsGibberishDomainCommonWordNotFlagged(t *testing.T) {
	if IsGibberishDomain("marketing.example.com") {
		t.Error("IsGibberishDomain() = true for a recognizable label, want false")
	}
}

func TestIsGibberishDomainRandomLabelFlagged(t *testing.T) {
	if !IsGibberishDomain("xqzvbkjpmw.net") {
		t.Error("IsGibberishDomain() = false for a high-entropy random label, want true")
	}
}
