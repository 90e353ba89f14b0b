package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/ranauvalemobi/dashboard-email-marketing/internal/conversion"
)

// ViewKey identifies one of the three detail tabs.
type ViewKey string

const (
	ViewConverted ViewKey = "converted"
	ViewFollowUp  ViewKey = "followup"
	ViewOrganic   ViewKey = "organic"
)

// PurchaseValueColumn holds the coerced amount in the converted export.
const PurchaseValueColumn = "purchase_value"

// ParseViewKey validates a key taken from a URL.
func ParseViewKey(s string) (ViewKey, error) {
	switch k := ViewKey(s); k {
	case ViewConverted, ViewFollowUp, ViewOrganic:
		return k, nil
	default:
		return "", fmt.Errorf("unknown view %q", s)
	}
}

// View is a detail table and its export.
type View struct {
	Key      ViewKey    `json:"key"`
	Title    string     `json:"title"`
	Hint     string     `json:"hint,omitempty"`
	Columns  []string   `json:"columns"`
	Rows     [][]string `json:"rows"`
	Filename string     `json:"filename"`
}

// Count is the number of rows in the view.
func (v View) Count() int { return len(v.Rows) }

// Preview returns at most limit rows; limit <= 0 means all.
func (v View) Preview(limit int) [][]string {
	if limit <= 0 || len(v.Rows) <= limit {
		return v.Rows
	}
	return v.Rows[:limit]
}

// ExportFilename builds "<prefix>_YYYYMMDD.csv".
func ExportFilename(key ViewKey, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", key, now.Format("20060102"))
}

// BuildViews materializes the three detail tables.
func BuildViews(res conversion.Result, now time.Time) []View {
	return []View{
		convertedView(res, now),
		emailView(ViewFollowUp, "Opened, did not purchase",
			"Warm leads for a follow-up send.", res.OpenedNotPurchased, now),
		emailView(ViewOrganic, "Purchased without opening",
			"Bought through other channels (ads, referrals, ...).", res.PurchasedNotOpened, now),
	}
}

func convertedView(res conversion.Result, now time.Time) View {
	rows := make([][]string, 0, len(res.ConvertedRows))
	width := len(res.Columns)
	for _, rec := range res.ConvertedRows {
		row := make([]string, 0, width+2)
		for i := 0; i < width; i++ {
			row = append(row, rec.Row.Get(i))
		}
		row = append(row, rec.Key)
		if res.HasAmountColumn {
			value := ""
			if rec.Amount.Valid {
				value = rec.Amount.Decimal.String()
			}
			row = append(row, value)
		}
		rows = append(rows, row)
	}
	return View{
		Key:      ViewConverted,
		Title:    "Converted",
		Columns:  ConvertedHeader(res),
		Rows:     rows,
		Filename: ExportFilename(ViewConverted, now),
	}
}

func emailView(key ViewKey, title, hint string, emails []string, now time.Time) View {
	rows := make([][]string, len(emails))
	for i, e := range emails {
		rows[i] = []string{e}
	}
	return View{
		Key:      key,
		Title:    title,
		Hint:     hint,
		Columns:  []string{"email"},
		Rows:     rows,
		Filename: ExportFilename(key, now),
	}
}

// WriteCSV writes the full view as UTF-8 comma-separated text with a header.
func WriteCSV(w io.Writer, v View) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(v.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(v.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}
