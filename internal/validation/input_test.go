package validation

import (
	"strings"
	"testing"
)

func TestValidateRunID(t *testing.T) {
	valid := []string{"a", "run-1", "550e8400-e29b-41d4-a716-446655440000", "run_2"}
	for _, id := range valid {
		if err := ValidateRunID(id); err != nil {
			t.Errorf("ValidateRunID(%q) = %v", id, err)
		}
	}
	invalid := []string{"", "has space", "семь", "a/b", strings.Repeat("x", 65)}
	for _, id := range invalid {
		if err := ValidateRunID(id); err == nil {
			t.Errorf("ValidateRunID(%q) accepted", id)
		}
	}
}

func TestValidateContentID(t *testing.T) {
	if err := ValidateContentID("debug_strike"); err != nil {
		t.Errorf("debug_strike rejected: %v", err)
	}
	if err := ValidateContentID("../etc/passwd"); err == nil {
		t.Errorf("path traversal accepted")
	}
	if err := ValidateContentID(strings.Repeat("x", 129)); err == nil {
		t.Errorf("oversized id accepted")
	}
}

func TestValidateDifficulty(t *testing.T) {
	for _, d := range []int{0, 5, 10} {
		if err := ValidateDifficulty(d); err != nil {
			t.Errorf("difficulty %d rejected: %v", d, err)
		}
	}
	for _, d := range []int{-1, 11, 100} {
		if err := ValidateDifficulty(d); err == nil {
			t.Errorf("difficulty %d accepted", d)
		}
	}
}

func TestValidateRecordCount(t *testing.T) {
	if err := ValidateRecordCount(0); err == nil {
		t.Errorf("zero records accepted")
	}
	if err := ValidateRecordCount(10001); err == nil {
		t.Errorf("10001 records accepted")
	}
	if err := ValidateRecordCount(42); err != nil {
		t.Errorf("42 records rejected: %v", err)
	}
}

func TestValidateHandIndex(t *testing.T) {
	if err := ValidateHandIndex(-1); err == nil {
		t.Errorf("negative hand index accepted")
	}
	if err := ValidateHandIndex(0); err != nil {
		t.Errorf("hand index 0 rejected: %v", err)
	}
}
