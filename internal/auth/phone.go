package auth

import (
	"errors"
	"strings"
)

var ErrInvalidPhone = errors.New("nomor telepon tidak valid")

// NormalizePhone canonicalizes an Indonesian phone number to the 62-prefixed
// digit form used as the account key: "0812-3456 789" and "+62812..." both
// map to "62812...".
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case strings.HasPrefix(digits, "62"):
		// already canonical
	case strings.HasPrefix(digits, "0"):
		digits = "62" + digits[1:]
	default:
		return "", ErrInvalidPhone
	}
	if len(digits) < 10 || len(digits) > 15 {
		return "", ErrInvalidPhone
	}
	return digits, nil
}
