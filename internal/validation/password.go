package validation

import (
	"fmt"
	"strings"
	"unicode"
)

// commonPasswords is a short deny-list of passwords seen in every breach dump.
var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "12345678": {}, "123456789": {},
	"1234567890": {}, "qwerty123": {}, "qwertyuiop": {}, "iloveyou": {}, "sunshine": {},
	"princess": {}, "football": {}, "baseball": {}, "welcome1": {}, "letmein1": {},
	"admin123": {}, "abc12345": {}, "11111111": {}, "00000000": {}, "passw0rd": {},
}

// PasswordPolicy is the configurable strength policy applied on registration.
type PasswordPolicy struct {
	MinLength int
}

// Validate returns every rule the password breaks. attrs holds user
// attributes (username, email, names) the password must not resemble.
func (p PasswordPolicy) Validate(password string, attrs map[string]string) []string {
	var msgs []string

	if n := p.MinLength; n > 0 && len([]rune(password)) < n {
		msgs = append(msgs, fmt.Sprintf("This password is too short. It must contain at least %d characters.", n))
	}

	lower := strings.ToLower(password)
	if _, ok := commonPasswords[lower]; ok {
		msgs = append(msgs, "This password is too common.")
	}

	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		msgs = append(msgs, "This password is entirely numeric.")
	}

	for _, attr := range []string{"username", "first_name", "last_name", "email"} {
		if similar(lower, attrs[attr]) {
			msgs = append(msgs, fmt.Sprintf("The password is too similar to the %s.", strings.ReplaceAll(attr, "_", " ")))
			break
		}
	}

	return msgs
}

// similar reports whether the password contains the attribute, or a part of
// it split on punctuation, as long as that part has at least 4 characters.
func similar(password, attr string) bool {
	attr = strings.ToLower(strings.TrimSpace(attr))
	if attr == "" || password == "" {
		return false
	}
	parts := strings.FieldsFunc(attr, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	parts = append(parts, attr)
	for _, part := range parts {
		if len(part) >= 4 && (strings.Contains(password, part) || strings.Contains(part, password)) {
			return true
		}
	}
	return false
}
