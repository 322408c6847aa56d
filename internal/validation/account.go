// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"campusfeed/internal/security"
)

const (
	MaxUsernameLength = 50
	MaxNicknameLength = 100
	MinPasswordLength = 6
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordLength = 72
)

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRegex = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

var allowedGenders = map[string]struct{}{
	"":       {},
	"male":   {},
	"female": {},
	"other":  {},
}

// storedLength counts runes as the value will be stored, after entity escaping.
func storedLength(s string) int {
	return utf8.RuneCountInString(security.Escape(s))
}

// ValidateUsername checks length and rejects whitespace and control characters.
// The limit applies to the escaped form, where < > " ' take several characters each.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if storedLength(username) > MaxUsernameLength {
		return fmt.Errorf("username must not exceed %d characters (< > \" ' count as several)", MaxUsernameLength)
	}
	for _, r := range username {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("username cannot contain spaces or control characters")
		}
	}
	return nil
}

// ValidateNickname checks a display name.
func ValidateNickname(nickname string) error {
	if strings.TrimSpace(nickname) == "" {
		return fmt.Errorf("nickname is required")
	}
	if storedLength(nickname) > MaxNicknameLength {
		return fmt.Errorf("nickname must not exceed %d characters (< > \" ' count as several)", MaxNicknameLength)
	}
	return nil
}

// ValidatePassword checks if a password meets length requirements
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLength)
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidatePhone accepts mainland mobile numbers.
func ValidatePhone(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("invalid phone number format")
	}
	return nil
}

// ValidateGender accepts an empty value or one of the known genders.
func ValidateGender(gender string) error {
	if _, ok := allowedGenders[gender]; !ok {
		return fmt.Errorf("gender must be one of male, female, other")
	}
	return nil
}
