package datanorm

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeEmail produces the join key: lower-cased and trimmed.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ParseAmount is parse-or-absent: blank or unparsable input yields an
// invalid NullDecimal instead of an error.
func ParseAmount(raw string) decimal.NullDecimal {
	v := strings.TrimSpace(raw)
	if v == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
