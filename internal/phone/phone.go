// Package phone normalizes user-entered phone numbers to the 10-digit form
// used as the user key.
package phone

import (
	"strings"

	"payskill/internal/apperr"
)

// Length is the number of digits in a normalized phone number.
const Length = 10

// ErrInvalid is returned for input that does not normalize to exactly
// Length digits.
var ErrInvalid = apperr.Validation(apperr.CodeInvalidPhone, "Please enter a valid 10-digit phone number")

// Normalize strips every non-digit and keeps the last Length digits.
// "+91 98424 70497" becomes "9842470497".
func Normalize(input string) (string, error) {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < Length {
		return "", ErrInvalid
	}
	return digits[len(digits)-Length:], nil
}

// Valid reports whether p is already normalized.
func Valid(p string) bool {
	if len(p) != Length {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return false
		}
	}
	return true
}
