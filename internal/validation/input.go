package validation

import (
	"fmt"
	"regexp"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateRunID validates run ID format
func ValidateRunID(id string) error {
	if len(id) == 0 || len(id) > 64 {
		return fmt.Errorf("run ID must be 1-64 characters")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("run ID can only contain alphanumeric characters, hyphens, and underscores")
	}
	return nil
}

// ValidateContentID validates card, relic, node, and choice ID format
func ValidateContentID(id string) error {
	if len(id) == 0 || len(id) > 128 {
		return fmt.Errorf("ID must be 1-128 characters")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("ID can only contain alphanumeric characters, hyphens, and underscores")
	}
	return nil
}

// ValidateDifficulty validates the run difficulty setting
func ValidateDifficulty(difficulty int) error {
	if difficulty < 0 || difficulty > 10 {
		return fmt.Errorf("difficulty must be between 0 and 10")
	}
	return nil
}

// ValidateRecordCount caps how much history a run may ingest
func ValidateRecordCount(n int) error {
	if n == 0 {
		return fmt.Errorf("at least one history record is required")
	}
	if n > 10000 {
		return fmt.Errorf("at most 10000 history records are accepted")
	}
	return nil
}

// ValidateHandIndex bounds the card slot named by a combat action
func ValidateHandIndex(index int) error {
	if index < 0 || index > 63 {
		return fmt.Errorf("hand index must be between 0 and 63")
	}
	return nil
}
