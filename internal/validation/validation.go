// Package validation contains pure input validators. Each Rule inspects a
// single value and returns a message, or "" when the value is acceptable.
// Errors collects messages per field so a request can report every problem
// in one response.
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	MsgRequired      = "This field is required."
	MsgInvalidEmail  = "Enter a valid email address."
	MsgInvalidMobile = "Phone number must be entered in the format: '+999999999'. Up to 15 digits allowed."
	MsgInvalidName   = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
)

var (
	mobileRegex   = regexp.MustCompile(`^\+?1?\d{9,15}$`)
	userNameRegex = regexp.MustCompile(`^[\w.@+-]+$`)
)

// Errors maps a field name to its violation messages.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) HasErrors() bool {
	return len(e) > 0
}

// Has reports whether field already has a violation.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// Error renders the violations in field order so messages are stable.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Rule validates a single value.
type Rule func(value string) string

// Clone returns a deep copy, so adding to it leaves e untouched.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for f, msgs := range e {
		out[f] = append([]string(nil), msgs...)
	}
	return out
}

// Field applies rules to value in order and records the first violation.
// A field that already has a violation is left as it is.
func (e Errors) Field(field, value string, rules ...Rule) {
	if e.Has(field) {
		return
	}
	for _, rule := range rules {
		if msg := rule(value); msg != "" {
			e.Add(field, msg)
			return
		}
	}
}

func Required(value string) string {
	if strings.TrimSpace(value) == "" {
		return MsgRequired
	}
	return ""
}

// MaxLength limits the value to n characters.
func MaxLength(n int) Rule {
	return func(value string) string {
		if utf8.RuneCountInString(value) > n {
			return fmt.Sprintf("Ensure this field has no more than %d characters.", n)
		}
		return ""
	}
}

func Email(value string) string {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || !strings.Contains(value[strings.LastIndex(value, "@")+1:], ".") {
		return MsgInvalidEmail
	}
	return ""
}

// Mobile accepts an optional "+", an optional leading "1" and 9 to 15 digits.
func Mobile(value string) string {
	if !mobileRegex.MatchString(value) {
		return MsgInvalidMobile
	}
	return ""
}

func UserName(value string) string {
	if !userNameRegex.MatchString(value) {
		return MsgInvalidName
	}
	return ""
}

// Choice restricts the value to one of the allowed codes.
func Choice(allowed ...string) Rule {
	return func(value string) string {
		for _, a := range allowed {
			if value == a {
				return ""
			}
		}
		return fmt.Sprintf("%q is not a valid choice.", value)
	}
}
