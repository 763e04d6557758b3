package quality

import (
	"testing"

	"github.com/orion-content/orion/internal/rulebook"
)

func TestDecidePass(t *testing.T) {
	enforcement := rulebook.Enforcement{
		DefaultMinQualityScore: 80,
		BlockPublishIfBelow:    false,
		TagIfBelow:             "review-needed",
	}

	d := Decide(85, enforcement)
	if d.State != StatePass || d.Action != ActionPublish {
		t.Errorf("expected clean pass, got %+v", d)
	}
	if len(d.Tags) != 0 {
		t.Errorf("pass must not carry tags, got %v", d.Tags)
	}
	if !d.Publishable() {
		t.Error("expected publishable")
	}
}

func TestDecideExactThresholdPasses(t *testing.T) {
	enforcement := rulebook.DefaultRules().Enforcement
	d := Decide(80, enforcement)
	if d.State != StatePass {
		t.Errorf("score equal to threshold must pass, got %+v", d)
	}
}

func TestDecideBlocked(t *testing.T) {
	enforcement := rulebook.Enforcement{
		DefaultMinQualityScore: 80,
		BlockPublishIfBelow:    true,
		TagIfBelow:             "review-needed",
	}

	d := Decide(79, enforcement)
	if d.State != StateBlocked || d.Action != ActionBlock {
		t.Errorf("expected block, got %+v", d)
	}
	if len(d.Tags) != 1 || d.Tags[0] != "review-needed" {
		t.Errorf("expected review tag on block, got %v", d.Tags)
	}
	if d.Publishable() {
		t.Error("blocked decision must not be publishable")
	}
}

func TestDecideReview(t *testing.T) {
	enforcement := rulebook.Enforcement{
		DefaultMinQualityScore: 80,
		BlockPublishIfBelow:    false,
		TagIfBelow:             "review-needed",
	}

	d := Decide(60, enforcement)
	if d.State != StateReview || d.Action != ActionPublishWithReview {
		t.Errorf("expected tagged review publish, got %+v", d)
	}
	if len(d.Tags) != 1 || d.Tags[0] != "review-needed" {
		t.Errorf("expected review tag, got %v", d.Tags)
	}
	if !d.Publishable() {
		t.Error("review decision must be publishable")
	}
}
