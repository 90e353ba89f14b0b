package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/osteele/liquid"
)

const copyTemplateSource = `CAMPAIGN ANALYSIS - {{ campaign }} | {{ campaign_date }}

Hi! I need your analysis of this email campaign.

═══════════════════════════════════════
MAIN METRICS
═══════════════════════════════════════

Emails opened: {{ opened | number }}
Conversions: {{ converted | number }}
Conversion rate: {{ rate | percent }}
Revenue: {{ revenue | money }}

═══════════════════════════════════════
BREAKDOWN
═══════════════════════════════════════

Opened but did NOT purchase: {{ follow_up | number }}
Purchased WITHOUT opening: {{ organic | number }}
Purchase transactions: {{ transactions | number }}

═══════════════════════════════════════
MY QUESTION:
═══════════════════════════════════════

[Type your question here]

Examples:
• Is this rate good?
• Is a follow-up worth it?
• How can we improve?
• What is the next action?

──────────────────────────────────────
{{ brand }} - {{ generated_at }}
`

// CopyTemplate renders the pre-formatted summary the operator pastes into
// an external AI chat. No network call is made.
type CopyTemplate struct {
	engine *liquid.Engine
	tpl    *liquid.Template
	opts   Options
	format *Formatter
}

// NewCopyTemplate parses the built-in template.
func NewCopyTemplate(opts Options) (*CopyTemplate, error) {
	ct := &CopyTemplate{engine: liquid.NewEngine(), opts: opts, format: NewFormatter(opts.Currency)}
	ct.registerFilters()

	tpl, err := ct.engine.ParseString(copyTemplateSource)
	if err != nil {
		return nil, err
	}
	ct.tpl = tpl
	return ct, nil
}

func (ct *CopyTemplate) registerFilters() {
	// Count with delimiters: {{ opened | number }}
	ct.engine.RegisterFilter("number", func(value interface{}) string {
		f, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("%v", value)
		}
		return ct.format.Count(int(f))
	})

	// Money: {{ revenue | money }}
	ct.engine.RegisterFilter("money", func(value interface{}) string {
		f, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("%v", value)
		}
		return ct.format.Money(f)
	})

	// Percentage with one decimal: {{ rate | percent }}
	ct.engine.RegisterFilter("percent", func(value interface{}) string {
		f, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("%v", value)
		}
		return ct.format.Percent(f)
	})
}

// Render fills the template for one dashboard.
func (ct *CopyTemplate) Render(d *Dashboard, now time.Time) (string, error) {
	bindings := map[string]interface{}{
		"campaign":      d.Campaign.Name,
		"campaign_date": d.Campaign.Date.Format(ct.opts.DateFormat),
		"opened":        d.Result.Opened,
		"converted":     d.Result.Converted,
		"rate":          d.Result.Rate,
		"revenue":       d.Result.RevenueFloat(),
		"follow_up":     d.FollowUp,
		"organic":       d.Organic,
		"transactions":  d.Result.PurchaseTransactions,
		"brand":         ct.opts.Brand,
		"generated_at":  now.Format(ct.opts.DateFormat + " 15:04"),
	}

	out, err := ct.tpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("render copy text: %w", err)
	}
	return out, nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
