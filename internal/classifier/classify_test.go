package classifier

import (
	"context"
	"testing"
)

func TestPipelineNextdoorDigestReachesTier3Marketing(t *testing.T) {
	p := NewPipeline(newFakeGeoCache(), 0, nil)
	in := Input{
		MessageID:    "nextdoor-1",
		Sender:       "reply@ss.email.nextdoor.com",
		SenderDomain: "ss.email.nextdoor.com",
		Subject:      "Weekly digest",
		// ss.email.nextdoor.com is not a configured trusted auth domain,
		// so AuthPass stays false even though the scenario passed SPF at
		// the protocol level — only internal/controller sets it true.
		AuthPass:       false,
		PriorPreserved: 0,
		ReceivedChain:  []string{"from mail.nextdoor.com (x [3.1.2.3]) by mx.local"}, // US block
	}
	v, _, _ := p.Classify(context.Background(), in)
	if v.Category != CategoryMarketing || v.Tier != 3 {
		t.Errorf("Classify() = %+v, want a tier3 %s verdict after ensemble <0.7 and geo:US leave tier1/2 unresolved", v, CategoryMarketing)
	}
	if v.Fallback {
		t.Errorf("Classify() = %+v, want Fallback=false: tier3 completes within budget", v)
	}
}

func TestPipelineTier3TimeoutFallsBackWithFlagSet(t *testing.T) {
	p := NewPipeline(newFakeGeoCache(), 0, nil)
	in := Input{
		MessageID:    "uncertain-1",
		Sender:       "notices@unknown-vendor.example",
		SenderDomain: "unknown-vendor.example",
		Subject:      "Please review the attached notice",
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // forces tier3's internal select onto its timeout branch

	v, _, _ := p.Classify(ctx, in)
	if !v.Fallback {
		t.Errorf("Classify() = %+v, want Fallback=true when tier3 cannot complete within budget", v)
	}
	if v.Tier != 1 {
		t.Errorf("Classify() tier = %d, want the fallback to carry tier1's originating tier", v.Tier)
	}
}

func TestPipelineShadowRolloutComputesV2Category(t *testing.T) {
	p := NewPipeline(newFakeGeoCache(), 100, nil)
	in := Input{MessageID: "shadow-1", Subject: "Hot singles in your area", SenderDomain: "example.com"}

	v, shadowCategory, agrees := p.Classify(context.Background(), in)
	if v.Category != CategoryDangerous {
		t.Fatalf("Classify() category = %q, want %q", v.Category, CategoryDangerous)
	}
	if shadowCategory != CategoryDangerous || !agrees {
		t.Errorf("Classify() shadow = (%q, %v), want (%q, true) at 100%% rollout", shadowCategory, agrees, CategoryDangerous)
	}
}

func TestPipelineShadowSkippedOutsideRollout(t *testing.T) {
	p := NewPipeline(newFakeGeoCache(), 0, nil)
	in := Input{MessageID: "no-shadow-1", Subject: "Hot singles in your area", SenderDomain: "example.com"}

	_, shadowCategory, agrees := p.Classify(context.Background(), in)
	if shadowCategory != "" || agrees {
		t.Errorf("Classify() shadow = (%q, %v), want empty/false at 0%% rollout", shadowCategory, agrees)
	}
}

func TestPipelineKeepsTier1SubcategoryOverTagger(t *testing.T) {
	patterns, err := CompilePatterns([]RawPattern{
		{Category: CategoryScams, Subcategory: "Prize fraud", Pattern: `(?i)you.?ve won`, Weight: 1.0},
	})
	if err != nil {
		t.Fatalf("CompilePatterns() error = %v", err)
	}
	p := NewPipeline(newFakeGeoCache(), 0, patterns)
	in := Input{MessageID: "tld-1", Subject: "You've won!", SenderDomain: "prizes.tk"}

	v, _, _ := p.Classify(context.Background(), in)
	if v.Subcategory != "Prize fraud" {
		t.Errorf("Classify() subcategory = %q, want the tier1 branch's own Prize fraud label preserved", v.Subcategory)
	}
}
