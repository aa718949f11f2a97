package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Input length constraints
const (
	MaxPlayerNameLength = 50
	MaxItemNameLength   = 80
	MinNameLength       = 1
)

var (
	// PocketBase ID regex - 15 character alphanumeric
	pocketbaseIDRegex = regexp.MustCompile(`^[a-zA-Z0-9]{15}$`)
	// UUID validation regex (for potential future use)
	uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	// Join codes are short uppercase alphanumerics, ambiguous glyphs excluded
	joinCodeRegex = regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4,8}$`)
	// Name validation regex - Unicode letters, digits, spaces, apostrophes, hyphens, underscores, dots
	// \p{L} matches any Unicode letter (includes accented characters)
	// \p{N} matches any Unicode number
	nameRegex = regexp.MustCompile(`^[\p{L}\p{N}\s'\-_.]+$`)
	// Dangerous characters that could be used for injection attacks
	dangerousCharsRegex = regexp.MustCompile(`[<>{}[\]\\;|&$()` + "`" + `]`)
)

// ValidateID validates that a string is a valid PocketBase ID or UUID format.
// PocketBase uses 15-character alphanumeric IDs, not standard UUIDs.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}

	if pocketbaseIDRegex.MatchString(id) {
		return nil
	}

	// Fallback: standard UUID format (custom item IDs use these)
	if uuidRegex.MatchString(strings.ToLower(id)) {
		if _, err := uuid.Parse(id); err != nil {
			return fmt.Errorf("malformed UUID: %w", err)
		}
		return nil
	}

	return fmt.Errorf("invalid ID format (expected 15-character PocketBase ID or UUID)")
}

// ValidateJoinCode validates a room join code.
func ValidateJoinCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", fmt.Errorf("join code cannot be empty")
	}
	if !joinCodeRegex.MatchString(code) {
		return "", fmt.Errorf("invalid join code format")
	}
	return code, nil
}

// ValidateName validates a name string with length and character constraints.
// Returns sanitized name and error if validation fails.
func ValidateName(name string, maxLen int) (string, error) {
	name = strings.TrimSpace(name)

	if name == "" {
		return "", fmt.Errorf("name cannot be empty")
	}

	if len(name) < MinNameLength {
		return "", fmt.Errorf("name too short (min %d characters)", MinNameLength)
	}

	if len(name) > maxLen {
		return "", fmt.Errorf("name too long (max %d characters)", maxLen)
	}

	if !nameRegex.MatchString(name) {
		return "", fmt.Errorf("name contains invalid characters (allowed: letters, numbers, spaces, apostrophes, hyphens, underscores, dots)")
	}

	if dangerousCharsRegex.MatchString(name) {
		return "", fmt.Errorf("name contains potentially dangerous characters")
	}

	// Check for control characters (belt-and-suspenders with regex)
	for _, r := range name {
		if r < 32 || r == 127 {
			return "", fmt.Errorf("name contains control characters")
		}
	}

	return name, nil
}

// ValidatePlayerName validates a player display name.
func ValidatePlayerName(name string) (string, error) {
	return ValidateName(name, MaxPlayerNameLength)
}

// ValidateItemName validates a custom item name.
func ValidateItemName(name string) (string, error) {
	return ValidateName(name, MaxItemNameLength)
}

// SanitizeErrorMessage removes sensitive information from error messages.
// Returns a generic user-friendly error message.
func SanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	errStr := strings.ToLower(err.Error())

	// Common database/internal error patterns to sanitize
	sensitivePatterns := []string{
		"sql",
		"database",
		"record",
		"collection",
		"pocketbase",
		"constraint",
		"foreign key",
		"unique",
		"duplicate key",
		"no rows",
	}

	for _, pattern := range sensitivePatterns {
		if strings.Contains(errStr, pattern) {
			return "An error occurred while processing your request"
		}
	}

	return err.Error()
}
