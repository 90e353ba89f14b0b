package datanorm

import (
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/ingest"
	"github.com/shopspring/decimal"
)

// NormalizedEmailColumn is the name of the derived key column in exports.
const NormalizedEmailColumn = "normalized_email"

// OpenRecord is one row of the opens table with its derived key.
type OpenRecord struct {
	Key string
	Row ingest.Row
}

// OpenTable holds who opened the message, one row per distinct key.
type OpenTable struct {
	Columns     []string
	EmailColumn string
	Records     []OpenRecord
	RawRows     int
}

// Keys returns the distinct keys in first-seen order.
func (t *OpenTable) Keys() []string {
	keys := make([]string, 0, len(t.Records))
	for _, r := range t.Records {
		keys = append(keys, r.Key)
	}
	return keys
}

// PurchaseRecord is one purchase row. Amount is invalid when the table has
// no amount column or the cell could not be parsed.
type PurchaseRecord struct {
	Key    string
	Amount decimal.NullDecimal
	Row    ingest.Row
}

// PurchaseTable holds who purchased. Rows are not deduplicated.
type PurchaseTable struct {
	Columns      []string
	EmailColumn  string
	AmountColumn string // empty when no amount-like column exists
	Records      []PurchaseRecord
}

// HasAmount reports whether an amount column was located.
func (t *PurchaseTable) HasAmount() bool {
	return t.AmountColumn != ""
}

// UniqueKeys counts distinct non-empty purchase keys.
func (t *PurchaseTable) UniqueKeys() int {
	seen := make(map[string]struct{}, len(t.Records))
	for _, r := range t.Records {
		if r.Key != "" {
			seen[r.Key] = struct{}{}
		}
	}
	return len(seen)
}

// NormalizeOpens derives the key column and collapses the table to one row
// per key, keeping the first occurrence. Rows with a blank email are dropped.
func NormalizeOpens(t *ingest.Table) (*OpenTable, error) {
	cols := normalizedColumns(t)
	emailIdx, ok := EmailMatcher.Find(cols)
	if !ok {
		return nil, &ColumnError{Table: "opens", Field: FieldEmail, Columns: cols, Err: ErrMissingEmailColumn}
	}

	out := &OpenTable{
		Columns:     cols,
		EmailColumn: cols[emailIdx],
		RawRows:     t.Len(),
	}
	seen := make(map[string]struct{}, t.Len())
	for _, row := range t.Rows {
		key := NormalizeEmail(row.Get(emailIdx))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Records = append(out.Records, OpenRecord{Key: key, Row: row})
	}
	return out, nil
}

// NormalizePurchases derives the key column and, when an amount-like column
// exists, coerces it with ParseAmount. Every row is kept.
func NormalizePurchases(t *ingest.Table) (*PurchaseTable, error) {
	cols := normalizedColumns(t)
	emailIdx, ok := EmailMatcher.Find(cols)
	if !ok {
		return nil, &ColumnError{Table: "purchases", Field: FieldEmail, Columns: cols, Err: ErrMissingEmailColumn}
	}

	out := &PurchaseTable{
		Columns:     cols,
		EmailColumn: cols[emailIdx],
		Records:     make([]PurchaseRecord, 0, t.Len()),
	}
	amountIdx, hasAmount := AmountMatcher.Find(cols)
	if hasAmount {
		out.AmountColumn = cols[amountIdx]
	}

	for _, row := range t.Rows {
		rec := PurchaseRecord{
			Key: NormalizeEmail(row.Get(emailIdx)),
			Row: row,
		}
		if hasAmount {
			rec.Amount = ParseAmount(row.Get(amountIdx))
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

func normalizedColumns(t *ingest.Table) []string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = NormalizeHeader(c)
	}
	return cols
}
