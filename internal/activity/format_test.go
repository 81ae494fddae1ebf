package activity

import (
	"strings"
	"testing"
)

func TestRenderSubstitutesFields(t *testing.T) {
	out, err := Render("- Repo {repo}: {message}", map[string]string{
		"repo":    "devpulse",
		"message": "fix flaky fetch",
	})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if out != "- Repo devpulse: fix flaky fetch" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestRenderReportsMissingFields(t *testing.T) {
	out, err := Render("- {distance} km {activity_type}", map[string]string{
		"distance": "5.0",
	})
	if err == nil {
		t.Fatal("expected error for missing field")
	}
	if !strings.Contains(err.Error(), "activity_type") {
		t.Errorf("error should name the missing field, got: %v", err)
	}

	// Best-effort result still carries the resolved fields.
	if !strings.Contains(out, "5.0") {
		t.Errorf("expected partial render to keep resolved fields, got %q", out)
	}
	if !strings.Contains(out, "{activity_type}") {
		t.Errorf("expected unresolved token left in place, got %q", out)
	}
}

func TestRenderIgnoresNonPlaceholderBraces(t *testing.T) {
	out, err := Render("steps: {steps} {}", map[string]string{"steps": "12000"})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if out != "steps: 12000 {}" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestPromptKeyDefaultsToSourceKey(t *testing.T) {
	act := Activity{Kind: KindFitnessSummary}
	if key := act.PromptKey("garmin"); key != "garmin" {
		t.Errorf("expected source key, got %q", key)
	}
}

func TestPromptKeyDiscriminatorOverrides(t *testing.T) {
	act := Activity{Kind: KindFitnessDailySummary, Discriminator: "garmin_daily"}
	if key := act.PromptKey("garmin"); key != "garmin_daily" {
		t.Errorf("expected discriminator to win, got %q", key)
	}
}
