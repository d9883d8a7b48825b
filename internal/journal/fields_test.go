package journal

import (
	"math"
	"testing"
)

func TestSanitizeDropsVacuousValues(t *testing.T) {
	in := Fields{
		"a": "",
		"b": nil,
		"c": math.NaN(),
		"d": 3,
	}

	got := Sanitize(in)

	if len(got) != 1 {
		t.Fatalf("expected 1 surviving field, got %d: %v", len(got), got)
	}
	if got["d"] != 3 {
		t.Errorf("expected d=3 to survive, got %v", got["d"])
	}

	// Input must be untouched.
	if len(in) != 4 {
		t.Errorf("Sanitize modified its input: %v", in)
	}
}

func TestSanitizeKeepsMeaningfulValues(t *testing.T) {
	in := Fields{
		"workout":     false,
		"sleep_hours": 0.0,
		"notes":       "ok",
	}

	got := Sanitize(in)
	if len(got) != 3 {
		t.Errorf("expected all 3 fields to survive, got %v", got)
	}
}

func TestDiffOnlyChangedFields(t *testing.T) {
	baseline := Fields{"mood": 3, "energy": 5}
	draft := Fields{"mood": 3, "energy": 4}

	got := Diff(draft, baseline)

	if len(got) != 1 {
		t.Fatalf("expected diff {energy:4}, got %v", got)
	}
	if got["energy"] != 4 {
		t.Errorf("expected energy=4, got %v", got["energy"])
	}
}

func TestDiffBaselineMissingKeyCounts(t *testing.T) {
	got := Diff(Fields{"mood": 4}, Fields{})
	if got["mood"] != 4 {
		t.Errorf("expected mood=4 in diff, got %v", got)
	}
}

func TestDiffIgnoresVacuousDraftValues(t *testing.T) {
	baseline := Fields{"notes": "hello"}
	draft := Fields{"notes": ""}

	got := Diff(draft, baseline)
	if len(got) != 0 {
		t.Errorf("empty string must not diff against baseline, got %v", got)
	}
}

func TestDiffNumericTypesCompareByValue(t *testing.T) {
	// Baselines decoded from JSON carry float64, drafts from the CLI
	// carry int. They must not produce a spurious diff.
	baseline := Fields{"mood": float64(3)}
	draft := Fields{"mood": 3}

	if got := Diff(draft, baseline); len(got) != 0 {
		t.Errorf("expected empty diff for 3 vs 3.0, got %v", got)
	}
}

func TestOverlayLaterWins(t *testing.T) {
	base := Fields{"mood": 2, "energy": 5}
	got := Overlay(base, Fields{"mood": 4})

	if got["mood"] != 4 || got["energy"] != 5 {
		t.Errorf("unexpected overlay result: %v", got)
	}
	if base["mood"] != 2 {
		t.Errorf("Overlay modified its base: %v", base)
	}
}

func TestParseDayKey(t *testing.T) {
	day, err := ParseDayKey("2024-03-09")
	if err != nil {
		t.Fatalf("ParseDayKey failed: %v", err)
	}
	if day.String() != "2024-03-09" {
		t.Errorf("unexpected day key: %s", day)
	}

	if _, err := ParseDayKey("09/03/2024"); err == nil {
		t.Error("expected error for non-canonical day key")
	}
}

func TestValidateField(t *testing.T) {
	if err := ValidateField("mood", 4); err != nil {
		t.Errorf("mood=4 should validate: %v", err)
	}
	if err := ValidateField("mood", 6); err == nil {
		t.Error("mood=6 should be rejected")
	}
	if err := ValidateField("mood", 3.5); err == nil {
		t.Error("mood=3.5 should be rejected")
	}
	if err := ValidateField("sleep_hours", 7.5); err != nil {
		t.Errorf("sleep_hours=7.5 should validate: %v", err)
	}
	if err := ValidateField("weight_kg", -1.0); err == nil {
		t.Error("negative weight should be rejected")
	}
	if err := ValidateField("workout", true); err != nil {
		t.Errorf("workout=true should validate: %v", err)
	}
	if err := ValidateField("workout", "yes"); err == nil {
		t.Error("workout=\"yes\" should be rejected")
	}
	if err := ValidateField("bogus", 1); err == nil {
		t.Error("unknown field should be rejected")
	}
	// Vacuous values pass through; the sanitizer removes them later.
	if err := ValidateField("notes", nil); err != nil {
		t.Errorf("nil value should validate: %v", err)
	}
}
