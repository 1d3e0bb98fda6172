package report

import (
	"embed"
	"html/template"
	"io"
	"strconv"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"pct": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) + "%" },
	"qty": formatQuantity,
}).ParseFS(templateFS, "templates/*.html"))

// RenderIndex writes the upload form.
func RenderIndex(w io.Writer) error {
	return templates.ExecuteTemplate(w, "index.html", nil)
}

// RenderHTML writes the results page for r.
func RenderHTML(w io.Writer, r *Report) error {
	return templates.ExecuteTemplate(w, "results.html", struct {
		*Report
		IssueSummary []IssueCount
	}{r, r.IssueCounts()})
}

// formatQuantity prints a quantity without trailing zeros.
func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
