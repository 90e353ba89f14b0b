// Package conversion crosses an opens table with a purchases table.
package conversion

import (
	"sort"

	"github.com/ranauvalemobi/dashboard-email-marketing/internal/datanorm"
	"github.com/shopspring/decimal"
)

// Result is an immutable snapshot of one analysis run.
type Result struct {
	Opened    int `json:"total_opened"`
	Purchased int `json:"total_purchased"` // unique purchaser emails
	Converted int `json:"total_converted"`

	// Raw purchase rows, and those belonging to converted emails.
	PurchaseTransactions  int `json:"purchase_transactions"`
	ConvertedTransactions int `json:"converted_transactions"`

	Rate            float64         `json:"conversion_rate"`
	Revenue         decimal.Decimal `json:"total_revenue"`
	HasAmountColumn bool            `json:"has_amount_column"`

	ConvertedEmails    []string `json:"converted_emails"`
	OpenedNotPurchased []string `json:"emails_opened_not_purchased"`
	PurchasedNotOpened []string `json:"emails_purchased_not_opened"`

	// ConvertedRows keeps the purchases table's row order.
	ConvertedRows []datanorm.PurchaseRecord `json:"-"`
	Columns       []string                  `json:"-"`
	AmountColumn  string                    `json:"amount_column,omitempty"`
}

// Analyze is a pure function of its two inputs.
func Analyze(opens *datanorm.OpenTable, purchases *datanorm.PurchaseTable) Result {
	opened := make(map[string]struct{}, len(opens.Records))
	for _, r := range opens.Records {
		if r.Key != "" {
			opened[r.Key] = struct{}{}
		}
	}

	purchased := make(map[string]struct{}, len(purchases.Records))
	for _, r := range purchases.Records {
		if r.Key != "" {
			purchased[r.Key] = struct{}{}
		}
	}

	converted := make(map[string]struct{})
	var openedOnly, purchasedOnly []string
	for k := range opened {
		if _, ok := purchased[k]; ok {
			converted[k] = struct{}{}
		} else {
			openedOnly = append(openedOnly, k)
		}
	}
	for k := range purchased {
		if _, ok := opened[k]; !ok {
			purchasedOnly = append(purchasedOnly, k)
		}
	}

	res := Result{
		Opened:               len(opened),
		Purchased:            len(purchased),
		Converted:            len(converted),
		PurchaseTransactions: len(purchases.Records),
		Rate:                 Rate(len(converted), len(opened)),
		Revenue:              decimal.Zero,
		HasAmountColumn:      purchases.HasAmount(),
		ConvertedEmails:      sortedKeys(converted),
		OpenedNotPurchased:   sorted(openedOnly),
		PurchasedNotOpened:   sorted(purchasedOnly),
		Columns:              purchases.Columns,
		AmountColumn:         purchases.AmountColumn,
	}

	for _, r := range purchases.Records {
		if _, ok := converted[r.Key]; !ok {
			continue
		}
		res.ConvertedRows = append(res.ConvertedRows, r)
		if r.Amount.Valid {
			res.Revenue = res.Revenue.Add(r.Amount.Decimal)
		}
	}
	res.ConvertedTransactions = len(res.ConvertedRows)

	return res
}

// Rate is converted/opened*100, defined as 0 when nothing was opened.
func Rate(converted, opened int) float64 {
	if opened == 0 {
		return 0
	}
	return float64(converted) / float64(opened) * 100
}

// RevenueFloat is the revenue as a float for display and templating.
func (r Result) RevenueFloat() float64 {
	f, _ := r.Revenue.Float64()
	return f
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return sorted(out)
}

func sorted(s []string) []string {
	if s == nil {
		return []string{}
	}
	sort.Strings(s)
	return s
}
