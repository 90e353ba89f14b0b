// Package report turns a conversion result into the dashboard view model:
// headline metrics, funnel, rating, detail views, exports and copy text.
package report

import (
	"fmt"
	"time"

	"github.com/ranauvalemobi/dashboard-email-marketing/internal/conversion"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/datanorm"
)

// Campaign is the display-only metadata the operator types in.
type Campaign struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// DefaultCampaign names the campaign after the given day.
func DefaultCampaign(now time.Time, dateFormat string) Campaign {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return Campaign{
		Name: "Campaign " + now.Format(dateFormat),
		Date: day,
	}
}

// Options carries the presentation settings from config.
type Options struct {
	Brand         string
	Currency      string
	AIAssistURL   string
	ExcellentRate float64
	GoodRate      float64
	PreviewRows   int
	DateFormat    string
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		Brand:         "Minhas Economias",
		Currency:      "R$",
		AIAssistURL:   "https://claude.ai/new",
		ExcellentRate: 3,
		GoodRate:      2,
		PreviewRows:   500,
		DateFormat:    "02/01/2006",
	}
}

// Rating is the qualitative label for a conversion rate.
type Rating string

const (
	RatingExcellent        Rating = "excellent"
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs improvement"
)

// Rate classifies a 0-100 conversion rate.
func (o Options) Rate(rate float64) Rating {
	switch {
	case rate >= o.ExcellentRate:
		return RatingExcellent
	case rate >= o.GoodRate:
		return RatingGood
	default:
		return RatingNeedsImprovement
	}
}

// Metric is one headline number.
type Metric struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// FunnelStage is one bar of the funnel with its share of the first stage.
type FunnelStage struct {
	Label          string  `json:"label"`
	Value          int     `json:"value"`
	PercentInitial float64 `json:"percent_initial"`
}

// Dashboard is everything the page and the JSON endpoint render.
type Dashboard struct {
	Campaign    Campaign          `json:"campaign"`
	Result      conversion.Result `json:"result"`
	Metrics     []Metric          `json:"metrics"`
	Funnel      []FunnelStage     `json:"funnel"`
	Rating      Rating            `json:"rating"`
	FollowUp    int               `json:"follow_up"`
	Organic     int               `json:"organic"`
	Views       []View            `json:"views"`
	CopyText    string            `json:"copy_text"`
	AIAssistURL string            `json:"ai_assist_url"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// View returns the detail view with the given key.
func (d *Dashboard) View(key ViewKey) (View, bool) {
	for _, v := range d.Views {
		if v.Key == key {
			return v, true
		}
	}
	return View{}, false
}

// Builder assembles dashboards with fixed options.
type Builder struct {
	opts   Options
	format *Formatter
	copy   *CopyTemplate
}

// NewBuilder parses the copy-text template once.
func NewBuilder(opts Options) (*Builder, error) {
	tpl, err := NewCopyTemplate(opts)
	if err != nil {
		return nil, fmt.Errorf("copy template: %w", err)
	}
	return &Builder{opts: opts, format: NewFormatter(opts.Currency), copy: tpl}, nil
}

// Options returns the builder's presentation settings.
func (b *Builder) Options() Options { return b.opts }

// Formatter returns the number formatter used for the page.
func (b *Builder) Formatter() *Formatter { return b.format }

// Build derives the dashboard for one analysis run.
func (b *Builder) Build(res conversion.Result, campaign Campaign, now time.Time) (*Dashboard, error) {
	d := &Dashboard{
		Campaign:    campaign,
		Result:      res,
		Metrics:     b.metrics(res),
		Funnel:      Funnel(res),
		Rating:      b.opts.Rate(res.Rate),
		FollowUp:    len(res.OpenedNotPurchased),
		Organic:     len(res.PurchasedNotOpened),
		Views:       BuildViews(res, now),
		AIAssistURL: b.opts.AIAssistURL,
		GeneratedAt: now,
	}

	text, err := b.copy.Render(d, now)
	if err != nil {
		return nil, err
	}
	d.CopyText = text
	return d, nil
}

func (b *Builder) metrics(res conversion.Result) []Metric {
	m := []Metric{
		{Key: "opened", Label: "Opened", Value: b.format.Count(res.Opened)},
		{Key: "converted", Label: "Converted", Value: b.format.Count(res.Converted)},
		{Key: "rate", Label: "Conversion rate", Value: b.format.Percent(res.Rate)},
	}
	if res.Revenue.IsPositive() {
		m = append(m, Metric{Key: "revenue", Label: "Revenue", Value: b.format.Money(res.RevenueFloat())})
	} else {
		m = append(m, Metric{Key: "purchases", Label: "Purchases", Value: b.format.Count(res.Purchased)})
	}
	return m
}

// Funnel orders the stages opened, converted, total purchases.
func Funnel(res conversion.Result) []FunnelStage {
	stages := []FunnelStage{
		{Label: "Opened", Value: res.Opened},
		{Label: "Converted", Value: res.Converted},
		{Label: "Total purchases", Value: res.Purchased},
	}
	initial := stages[0].Value
	for i := range stages {
		if initial > 0 {
			stages[i].PercentInitial = float64(stages[i].Value) / float64(initial) * 100
		}
	}
	return stages
}

// ConvertedHeader lists the export columns of the converted view.
func ConvertedHeader(res conversion.Result) []string {
	header := append([]string{}, res.Columns...)
	header = append(header, datanorm.NormalizedEmailColumn)
	if res.HasAmountColumn {
		header = append(header, PurchaseValueColumn)
	}
	return header
}
