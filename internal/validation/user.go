// Package validation holds input format rules shared by services.
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLen = 12
	maxPasswordLen = 128
	maxEmailLen    = 254
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{1,28}[A-Za-z0-9]$`)

// ValidateUsername checks length (3-30) and charset. Dashes and underscores
// may not lead or trail.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-30 characters of letters, numbers, dashes or underscores, starting and ending with a letter or number")
	}
	return nil
}

// ValidateEmail checks the address is a bare RFC 5322 addr-spec.
func ValidateEmail(email string) error {
	if len(email) > maxEmailLen {
		return fmt.Errorf("email must be at most %d characters", maxEmailLen)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address")
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") || strings.HasPrefix(domain, ".") {
		return fmt.Errorf("invalid email domain")
	}
	return nil
}

// ValidatePassword requires 12-128 characters with upper, lower, digit and
// symbol classes present.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLen || n > maxPasswordLen {
		return fmt.Errorf("password must be %d-%d characters", minPasswordLen, maxPasswordLen)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return fmt.Errorf("password must contain upper and lower case letters, a digit and a symbol")
	}
	return nil
}
