package classifier

import "testing"

func TestTier1AuthPassIsLegitimate(t *testing.T) {
	t1 := NewTier1()
	v, obvious := t1.Classify(Input{Sender: "statements@chase.com", SenderDomain: "chase.com", AuthPass: true})
	if !obvious || v.Category != CategoryLegitimate || v.Confidence != 1.0 || v.Reason != "auth-pass" {
		t.Errorf("Classify() = %+v, obvious=%v, want auth-pass legitimate at confidence 1.0", v, obvious)
	}
}

func TestTier1DeleteFlagBypassesAuthWhitelist(t *testing.T) {
	t1 := NewTier1()
	v, _ := t1.Classify(Input{Sender: "a@b.com", SenderDomain: "b.com", AuthPass: true, HasDeleteFlag: true, Subject: "hello"})
	if v.Reason == "auth-pass" {
		t.Error("Classify() took the auth-pass shortcut despite a DELETE flag being present")
	}
}

func TestTier1AdultKeywordIsObviousDangerous(t *testing.T) {
	t1 := NewTier1()
	v, obvious := t1.Classify(Input{Subject: "Hot singles in your area", SenderDomain: "example.com"})
	if !obvious || v.Category != CategoryDangerous || v.Confidence < 0.7 {
		t.Errorf("Classify() = %+v, obvious=%v, want obvious Dangerous verdict >= 0.7", v, obvious)
	}
}

func TestTier1NigerianPrinceScam(t *testing.T) {
	t1 := NewTier1()
	v, obvious := t1.Classify(Input{Subject: "Congratulations! You've won", SenderDomain: "lottery.tk"})
	if !obvious || v.Category != CategoryScams || v.Confidence < 0.95 || v.Subcategory != "Prize fraud" {
		t.Errorf("Classify() = %+v, obvious=%v, want Scams/Prize fraud at confidence >= 0.95 (worked example 3)", v, obvious)
	}
}

func TestTier1AutoWarrantySpamKeyword(t *testing.T) {
	t1 := NewTier1()
	v, obvious := t1.Classify(Input{Sender: "warranty@auto-protect.com", Subject: "Your vehicle warranty expires soon!", SenderDomain: "auto-protect.com"})
	if !obvious || v.Category != CategoryCommercialSpam || v.Confidence < 0.92 || v.Subcategory != "Auto warranty & insurance" {
		t.Errorf("Classify() = %+v, obvious=%v, want obvious Commercial Spam/Auto warranty & insurance at confidence >= 0.92 (worked example 2)", v, obvious)
	}
}

func TestTier1VendorHistoryDigest(t *testing.T) {
	t1 := NewTier1()
	v, _ := t1.Classify(Input{Subject: "Weekly digest", SenderDomain: "ss.email.nextdoor.com", PriorPreserved: 5})
	if v.Category != CategoryTransactional || v.Reason != "vendor-history" {
		t.Errorf("Classify() = %+v, want Transactional/vendor-history", v)
	}
}

func TestTier1EnsembleFallsThroughToLegitimateWhenUnsure(t *testing.T) {
	t1 := NewTier1()
	v, obvious := t1.Classify(Input{Subject: "Weekly digest", SenderDomain: "ss.email.nextdoor.com"})
	if obvious {
		t.Errorf("Classify() reported obvious=true for a message with no strong signal: %+v", v)
	}
}
