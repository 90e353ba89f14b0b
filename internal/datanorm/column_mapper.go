// Package datanorm locates the email and amount columns of uploaded tables
// and derives the normalized join key used by the conversion analysis.
package datanorm

import (
	"errors"
	"fmt"
	"strings"
)

// CanonicalField names the role a matched column plays.
type CanonicalField string

const (
	FieldEmail  CanonicalField = "email"
	FieldAmount CanonicalField = "amount"
)

// Matcher is an ordered list of substring tokens. A column qualifies when
// its normalized header contains any token.
type Matcher struct {
	Field  CanonicalField
	Tokens []string
}

var (
	EmailMatcher  = Matcher{Field: FieldEmail, Tokens: []string{"email", "mail"}}
	AmountMatcher = Matcher{Field: FieldAmount, Tokens: []string{"valor", "value", "amount", "price"}}
)

var ErrMissingEmailColumn = errors.New("missing email column")

// ColumnError reports which table lacked a required column.
type ColumnError struct {
	Table   string
	Field   CanonicalField
	Columns []string
	Err     error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s: %v (columns: %s)", e.Table, e.Err, strings.Join(e.Columns, ", "))
}

func (e *ColumnError) Unwrap() error { return e.Err }

// NormalizeHeader lower-cases and trims a header name.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// Matches reports whether a header qualifies for the matcher.
func (m Matcher) Matches(header string) bool {
	h := NormalizeHeader(header)
	for _, tok := range m.Tokens {
		if strings.Contains(h, tok) {
			return true
		}
	}
	return false
}

// Find returns the index of the first qualifying column in declared order.
// First match wins: with "email" and "backup_mail" present, whichever comes
// first is used.
func (m Matcher) Find(columns []string) (int, bool) {
	for i, c := range columns {
		if m.Matches(c) {
			return i, true
		}
	}
	return -1, false
}
