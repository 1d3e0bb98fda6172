package report

import (
	"fmt"

	"github.com/johnfercher/maroto/pkg/color"
	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"
)

var (
	darkGray   = color.Color{Red: 38, Green: 38, Blue: 34}
	mediumGray = color.Color{Red: 121, Green: 119, Blue: 109}
	alertRed   = color.Color{Red: 198, Green: 40, Blue: 40}
)

// RenderPDF renders r as an A4 PDF document.
func RenderPDF(r *Report) ([]byte, error) {
	m := pdf.NewMaroto(consts.Portrait, consts.A4)
	m.SetPageMargins(20, 20, 20)

	res := r.Result

	m.Row(15, func() {
		m.Col(12, func() {
			m.Text("STORE ANALYSIS", props.Text{Size: 22, Style: consts.Bold, Color: darkGray})
		})
	})
	m.Row(5, func() {
		m.Col(12, func() {
			m.Text(fmt.Sprintf("Report %s  |  computed %s", r.ID, r.GeneratedAt.Format("Jan 02, 2006 15:04 MST")),
				props.Text{Size: 8, Color: mediumGray})
		})
	})
	m.Row(8, func() {})

	sectionTitle(m, "METRICS")
	metricRow(m, "One-time user %", fmt.Sprintf("%.2f%%", res.OneTimeUserPct))
	metricRow(m, "Combo AOV", res.ComboAOV.String())
	metricRow(m, "Regular AOV", res.RegularAOV.String())
	metricRow(m, "Expired stock %", fmt.Sprintf("%.2f%%", res.ExpiredPct))
	m.Row(6, func() {})

	sectionTitle(m, "TOP EXPIRED PRODUCTS")
	if len(res.TopExpired) == 0 {
		m.Row(6, func() {
			m.Col(12, func() {
				m.Text("No expired stock.", props.Text{Size: 9, Color: mediumGray})
			})
		})
	}
	for i, p := range res.TopExpired {
		metricRow(m, fmt.Sprintf("%d. %s", i+1, p.ProductID), formatQuantity(p.Quantity))
	}
	m.Row(6, func() {})

	if len(r.Flags) > 0 {
		sectionTitle(m, "RULES FIRED")
		for _, f := range r.Flags {
			msg := fmt.Sprintf("%s: %s (value %.2f)", f.Rule, f.Condition, f.Value)
			c := darkGray
			if f.Severity == "critical" {
				c = alertRed
			}
			m.Row(6, func() {
				m.Col(12, func() {
					m.Text(msg, props.Text{Size: 9, Color: c})
				})
			})
		}
		m.Row(6, func() {})
	}

	if len(r.Diagnostics) > 0 {
		sectionTitle(m, "NOTES")
		for _, h := range r.Diagnostics {
			title, detail := h.Title, h.Detail
			m.Row(5, func() {
				m.Col(12, func() {
					m.Text(title, props.Text{Size: 9, Style: consts.Bold, Color: darkGray})
				})
			})
			m.Row(10, func() {
				m.Col(12, func() {
					m.Text(detail, props.Text{Size: 8, Color: mediumGray})
				})
			})
		}
		m.Row(6, func() {})
	}

	sectionTitle(m, "COUNTS")
	metricRow(m, "Orders", fmt.Sprintf("%d", res.Orders))
	metricRow(m, "Users", fmt.Sprintf("%d", res.Users))
	metricRow(m, "Combo / regular orders", fmt.Sprintf("%d / %d", res.ComboOrders, res.RegularOrders))
	metricRow(m, "Inventory rows", fmt.Sprintf("%d", res.InventoryRows))
	metricRow(m, "Expired / total quantity",
		fmt.Sprintf("%s / %s", formatQuantity(res.ExpiredQuantity), formatQuantity(res.TotalQuantity)))
	for _, ic := range r.IssueCounts() {
		metricRow(m, fmt.Sprintf("Unreadable %s.%s", ic.Table, ic.Field), fmt.Sprintf("%d", ic.Count))
	}

	buf, err := m.Output()
	if err != nil {
		return nil, fmt.Errorf("report: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func sectionTitle(m pdf.Maroto, title string) {
	m.Row(7, func() {
		m.Col(12, func() {
			m.Text(title, props.Text{Size: 10, Style: consts.Bold, Color: darkGray})
		})
	})
}

func metricRow(m pdf.Maroto, label, value string) {
	m.Row(6, func() {
		m.Col(8, func() {
			m.Text(label, props.Text{Size: 9, Color: mediumGray})
		})
		m.Col(4, func() {
			m.Text(value, props.Text{Size: 9, Color: darkGray, Align: consts.Right})
		})
	})
}
