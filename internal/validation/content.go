package validation

import (
	"fmt"
	"unicode/utf8"
)

// Length bounds for user-authored text, counted in characters.
const (
	MinPostLength    = 5
	MaxPostLength    = 500
	MaxCommentLength = 500
	MaxMessageLength = 1000
	MaxBioLength     = 500
)

// ValidateLength checks that s holds between min and max characters.
func ValidateLength(field, s string, min, max int) error {
	n := utf8.RuneCountInString(s)
	if n == 0 && min > 0 {
		return fmt.Errorf("%s is required", field)
	}
	if n < min || n > max {
		return fmt.Errorf("%s must be between %d and %d characters", field, min, max)
	}
	return nil
}

// ValidatePostContent checks trimmed post content.
func ValidatePostContent(content string) error {
	return ValidateLength("content", content, MinPostLength, MaxPostLength)
}
