package api

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/ranauvalemobi/dashboard-email-marketing/internal/ingest"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/report"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/session"
)

// pageRenderer fills the dashboard template.
type pageRenderer struct {
	tpl    *template.Template
	opts   report.Options
	format *report.Formatter
}

type pageTab struct {
	report.View
	Checked   bool
	Total     string
	Rows      [][]string
	Truncated bool
	ExportURL string
}

type pageData struct {
	Brand        string
	Version      string
	Today        string
	CampaignName string
	CampaignDate string
	CampaignDay  string
	Accept       string
	Uploads      []UploadStatus
	Dashboard    *report.Dashboard
	RatingClass  string
	FollowUp     string
	Organic      string
	Transactions string
	Tabs         []pageTab
	PreviewRows  int
}

func newPageRenderer(builder *report.Builder) *pageRenderer {
	format := builder.Formatter()
	funcs := template.FuncMap{
		"count":   format.Count,
		"percent": format.Percent,
		"width": func(p float64) string {
			if p > 100 {
				p = 100
			}
			return fmt.Sprintf("%.1f%%", p)
		},
	}
	return &pageRenderer{
		tpl:    template.Must(template.New("dashboard").Funcs(funcs).Parse(dashboardTemplate)),
		opts:   builder.Options(),
		format: format,
	}
}

// Render writes the page for one session snapshot.
func (p *pageRenderer) Render(w io.Writer, st *session.State, a *Analysis, now time.Time) error {
	format := p.format
	data := pageData{
		Brand:        p.opts.Brand,
		Version:      Version,
		Today:        now.Format(p.opts.DateFormat),
		CampaignName: st.Campaign.Name,
		CampaignDate: st.Campaign.Date.Format(campaignDateLayout),
		CampaignDay:  st.Campaign.Date.Format(p.opts.DateFormat),
		Accept:       strings.Join(ingest.AcceptedExtensions, ","),
		Uploads:      []UploadStatus{a.Opens, a.Purchases},
		Dashboard:    a.Dashboard,
		PreviewRows:  p.opts.PreviewRows,
	}

	if d := a.Dashboard; d != nil {
		data.RatingClass = ratingClass(d.Rating)
		data.FollowUp = format.Count(d.FollowUp)
		data.Organic = format.Count(d.Organic)
		data.Transactions = format.Count(d.Result.PurchaseTransactions)
		for i, v := range d.Views {
			rows := v.Preview(p.opts.PreviewRows)
			data.Tabs = append(data.Tabs, pageTab{
				View:      v,
				Checked:   i == 0,
				Total:     format.Count(v.Count()),
				Rows:      rows,
				Truncated: len(rows) < v.Count(),
				ExportURL: "/export/" + string(v.Key),
			})
		}
	}

	return p.tpl.Execute(w, data)
}

func ratingClass(r report.Rating) string {
	switch r {
	case report.RatingExcellent:
		return "excellent"
	case report.RatingGood:
		return "good"
	default:
		return "poor"
	}
}

const dashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Brand}} - Email conversion</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 0; background: #f5f6f8; color: #1f2430; }
  header, main, footer { max-width: 1100px; margin: 0 auto; padding: 1rem; }
  header h1 { margin: 0; font-size: 1.5rem; }
  .grid { display: grid; gap: 1rem; grid-template-columns: repeat(auto-fit, minmax(240px, 1fr)); }
  .card { background: #fff; border-radius: 8px; padding: 1rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
  .metric .value { font-size: 1.8rem; font-weight: 600; }
  .metric .label { color: #6b7280; font-size: .85rem; }
  .status { font-size: .85rem; margin-top: .5rem; }
  .status.ok { color: #15803d; }
  .status.error { color: #b91c1c; }
  .status.pending { color: #6b7280; }
  .funnel .stage { margin: .4rem 0; }
  .funnel .bar { background: #2563eb; color: #fff; padding: .35rem .5rem; border-radius: 4px; min-width: 3rem; white-space: nowrap; }
  .rating { font-weight: 600; text-transform: capitalize; }
  .rating.excellent { color: #15803d; }
  .rating.good { color: #ca8a04; }
  .rating.poor { color: #b91c1c; }
  .tabs input[type=radio] { display: none; }
  .tabs label.tab { display: inline-block; padding: .5rem 1rem; cursor: pointer; border-bottom: 2px solid transparent; }
  .tabs .panel { display: none; overflow-x: auto; }
  {{range .Tabs}}#tab-{{.Key}}:checked ~ .panels #panel-{{.Key}} { display: block; }
  #tab-{{.Key}}:checked + label.tab { border-bottom-color: #2563eb; }
  {{end}}
  table { border-collapse: collapse; width: 100%; font-size: .85rem; }
  th, td { border-bottom: 1px solid #e5e7eb; padding: .3rem .5rem; text-align: left; }
  textarea { width: 100%; min-height: 16rem; font-family: ui-monospace, monospace; }
  .waiting ol { margin: .5rem 0 0 1.2rem; }
  footer { color: #6b7280; font-size: .8rem; }
</style>
</head>
<body>
<header>
  <h1>{{.Brand}} - Email conversion dashboard</h1>
</header>
<main>
  <section class="grid">
    {{range .Uploads}}
    <form class="card" method="post" action="/upload/{{.Slot}}" enctype="multipart/form-data">
      <h3>{{if eq .Slot "opens"}}Opens spreadsheet{{else}}Purchases spreadsheet{{end}}</h3>
      <input type="file" name="file" accept="{{$.Accept}}" required>
      <button type="submit">Upload</button>
      {{if .Filename}}<div class="status">File: {{.Filename}}</div>{{end}}
      {{if .Error}}<div class="status error">{{.Error}}</div>
      {{else if .Ready}}<div class="status ok">{{.Message}}</div>
      {{else}}<div class="status pending">{{.Message}}</div>{{end}}
    </form>
    {{end}}
    <form class="card" method="post" action="/campaign">
      <h3>Campaign</h3>
      <label>Name <input type="text" name="name" value="{{.CampaignName}}"></label>
      <label>Date <input type="date" name="date" value="{{.CampaignDate}}"></label>
      <button type="submit">Save</button>
    </form>
  </section>

  {{with .Dashboard}}
  <h2>{{.Campaign.Name}} | {{$.CampaignDay}}</h2>
  <section class="grid">
    {{range .Metrics}}
    <div class="card metric"><div class="label">{{.Label}}</div><div class="value">{{.Value}}</div></div>
    {{end}}
  </section>

  <section class="grid">
    <div class="card funnel">
      <h3>Funnel</h3>
      {{range .Funnel}}
      <div class="stage">
        <div>{{.Label}}</div>
        <div class="bar" style="width: {{width .PercentInitial}}">{{count .Value}} ({{percent .PercentInitial}} of initial)</div>
      </div>
      {{end}}
    </div>
    <div class="card">
      <h3>Breakdown</h3>
      <p>Rating: <span class="rating {{$.RatingClass}}">{{.Rating}}</span></p>
      <p>Opened without purchasing: {{$.FollowUp}}</p>
      <p>Purchased without opening: {{$.Organic}}</p>
      <p>Purchase transactions: {{$.Transactions}}</p>
    </div>
  </section>

  <section class="card tabs">
    {{range $.Tabs}}
    <input type="radio" name="tab" id="tab-{{.Key}}" {{if .Checked}}checked{{end}}>
    <label class="tab" for="tab-{{.Key}}">{{.Title}} ({{.Total}})</label>
    {{end}}
    <div class="panels">
      {{range $.Tabs}}
      <div class="panel" id="panel-{{.Key}}">
        {{if .Hint}}<p>{{.Hint}}</p>{{end}}
        <p><a href="{{.ExportURL}}" download="{{.Filename}}">Download {{.Filename}}</a></p>
        {{if .Truncated}}<p class="status pending">Showing the first {{$.PreviewRows}} of {{.Total}} rows. The download has every row.</p>{{end}}
        <table>
          <thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
          <tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody>
        </table>
      </div>
      {{end}}
    </div>
  </section>

  <section class="card">
    <h3>Ask an AI assistant</h3>
    <p>Copy the summary, open the assistant and paste it, then replace the question placeholder.</p>
    <textarea id="copy-text" readonly>{{.CopyText}}</textarea>
    <p>
      <button type="button" onclick="navigator.clipboard.writeText(document.getElementById('copy-text').value)">Copy text</button>
      <a href="{{.AIAssistURL}}" target="_blank" rel="noopener noreferrer">Open AI assistant</a>
    </p>
  </section>
  {{else}}
  <section class="card waiting">
    <h3>Waiting for both spreadsheets</h3>
    <ol>
      <li>Upload the opens export (.xlsx, .xls or .csv) with an email column.</li>
      <li>Upload the purchases export with an email column and, optionally, a value column.</li>
      <li>The dashboard appears as soon as both files are read.</li>
    </ol>
  </section>
  {{end}}

  <form method="post" action="/reset"><button type="submit">Clear uploads</button></form>
</main>
<footer>{{.Brand}} - v{{.Version}} - {{.Today}}</footer>
</body>
</html>
`
