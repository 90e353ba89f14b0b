package api

import (
	"fmt"
	"time"

	"github.com/ranauvalemobi/dashboard-email-marketing/internal/conversion"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/datanorm"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/report"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/session"
)

// UploadStatus is the status line shown under one upload form.
type UploadStatus struct {
	Slot     session.Slot `json:"slot"`
	Filename string       `json:"filename,omitempty"`
	Ready    bool         `json:"ready"`
	Message  string       `json:"message"`
	Error    string       `json:"error,omitempty"`
}

// Analysis is one render's worth of derived state. Dashboard is nil until
// both uploads are usable.
type Analysis struct {
	Opens     UploadStatus      `json:"opens"`
	Purchases UploadStatus      `json:"purchases"`
	Dashboard *report.Dashboard `json:"dashboard,omitempty"`
}

// Available reports whether the dashboard could be built.
func (a *Analysis) Available() bool {
	return a.Dashboard != nil
}

// Messages collects the inline status lines that explain a missing analysis.
func (a *Analysis) Messages() []string {
	var out []string
	for _, st := range []UploadStatus{a.Opens, a.Purchases} {
		if st.Error != "" {
			out = append(out, st.Error)
		} else if !st.Ready {
			out = append(out, st.Message)
		}
	}
	return out
}

// analyze recomputes everything from the session snapshot. User-input
// problems end up in the upload statuses; only dashboard assembly errors
// are returned.
func analyze(st *session.State, builder *report.Builder, now time.Time) (*Analysis, error) {
	format := builder.Formatter()
	a := &Analysis{
		Opens:     UploadStatus{Slot: session.SlotOpens, Filename: st.Opens.Filename},
		Purchases: UploadStatus{Slot: session.SlotPurchases, Filename: st.Purchases.Filename},
	}

	var opens *datanorm.OpenTable
	switch {
	case !st.Opens.Received():
		a.Opens.Message = "Waiting for the opens file"
	case st.Opens.Error != "":
		a.Opens.Error = st.Opens.Error
	default:
		t, err := datanorm.NormalizeOpens(st.Opens.Table)
		if err != nil {
			a.Opens.Error = err.Error()
			break
		}
		opens = t
		a.Opens.Ready = true
		a.Opens.Message = fmt.Sprintf("%s rows read, %s unique emails",
			format.Count(t.RawRows), format.Count(len(t.Records)))
	}

	var purchases *datanorm.PurchaseTable
	switch {
	case !st.Purchases.Received():
		a.Purchases.Message = "Waiting for the purchases file"
	case st.Purchases.Error != "":
		a.Purchases.Error = st.Purchases.Error
	default:
		t, err := datanorm.NormalizePurchases(st.Purchases.Table)
		if err != nil {
			a.Purchases.Error = err.Error()
			break
		}
		purchases = t
		a.Purchases.Ready = true
		a.Purchases.Message = fmt.Sprintf("%s transactions, %s unique purchasers",
			format.Count(len(t.Records)), format.Count(t.UniqueKeys()))
	}

	if opens == nil || purchases == nil {
		return a, nil
	}

	res := conversion.Analyze(opens, purchases)
	d, err := builder.Build(res, st.Campaign, now)
	if err != nil {
		return a, err
	}
	a.Dashboard = d
	return a, nil
}
