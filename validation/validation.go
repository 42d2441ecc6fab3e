// Package validation collects per-field input errors.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Violations maps a field name to its messages, in the order they were added.
type Violations map[string][]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records msg for field.
func (v Violations) Add(field, msg string) {
	v[field] = append(v[field], msg)
}

// Has reports whether field already has a violation.
func (v Violations) Has(field string) bool { return len(v[field]) > 0 }

// Merge copies other into v.
func (v Violations) Merge(other Violations) {
	for f, msgs := range other {
		v[f] = append(v[f], msgs...)
	}
}

func label(field string) string { return strings.ReplaceAll(field, "_", " ") }

// Required flags blank strings.
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, fmt.Sprintf("The %s field is required.", label(field)))
	}
}

// MaxLength flags strings longer than n characters.
func MaxLength(field, value string, n int, v Violations) {
	if utf8.RuneCountInString(value) > n {
		v.Add(field, fmt.Sprintf("The %s may not be greater than %d characters.", label(field), n))
	}
}

// MinLength flags non-empty strings shorter than n characters.
func MinLength(field, value string, n int, v Violations) {
	if value != "" && utf8.RuneCountInString(value) < n {
		v.Add(field, fmt.Sprintf("The %s must be at least %d characters.", label(field), n))
	}
}

// Email flags values that are not a bare address.
func Email(field, value string, v Violations) {
	if value == "" {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		v.Add(field, fmt.Sprintf("The %s must be a valid email address.", label(field)))
	}
}

// MinInt flags integers below minVal.
func MinInt(field string, val, minVal int, v Violations) {
	if val < minVal {
		v.Add(field, fmt.Sprintf("The %s must be at least %d.", label(field), minVal))
	}
}

// NonNegative flags negative amounts.
func NonNegative(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v.Add(field, fmt.Sprintf("The %s must be at least 0.", label(field)))
	}
}

// Confirmed flags a confirmation value that differs from value.
func Confirmed(field, value, confirmation string, v Violations) {
	if value != confirmation {
		v.Add(field, fmt.Sprintf("The %s confirmation does not match.", label(field)))
	}
}

// Invalid records the standard message for a reference to a missing row.
func Invalid(field string, v Violations) {
	v.Add(field, fmt.Sprintf("The selected %s is invalid.", label(field)))
}
