package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

var funcs = map[string]any{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"pct":   func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

const subjectTmpl = `Your {{.Frequency}} Financial Report - {{.Period}}`

const textTmpl = `Hi {{if .Name}}{{.Name}}{{else}}there{{end}},

Here is your {{.Frequency}} financial report for {{.Period}}.

Income:            {{money .TotalIncome}}
Expenses:          {{money .TotalExpenses}}
Available balance: {{money .Balance}}
Savings rate:      {{pct .SavingsRate}}
{{if .TopCategories}}
Top spending categories:
{{range .TopCategories}}  - {{title .Name}}: {{money .Amount}} ({{.Percent}}%)
{{end}}{{end}}{{if .Insights}}
Insights:
{{range .Insights}}  - {{.}}
{{end}}{{end}}
This is an automated message.
`

const htmlTmpl = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937">
<h2>{{.Frequency}} Financial Report</h2>
<p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}}, here is your summary for <strong>{{.Period}}</strong>.</p>
<table cellpadding="6">
<tr><td>Income</td><td>{{money .TotalIncome}}</td></tr>
<tr><td>Expenses</td><td>{{money .TotalExpenses}}</td></tr>
<tr><td>Available balance</td><td>{{money .Balance}}</td></tr>
<tr><td>Savings rate</td><td>{{pct .SavingsRate}}</td></tr>
</table>
{{if .TopCategories}}<h3>Top spending categories</h3>
<ul>{{range .TopCategories}}<li>{{title .Name}}: {{money .Amount}} ({{.Percent}}%)</li>{{end}}</ul>{{end}}
{{if .Insights}}<h3>Insights</h3>
<ul>{{range .Insights}}<li>{{.}}</li>{{end}}</ul>{{end}}
<p style="color:#6b7280;font-size:12px">This is an automated message.</p>
</body></html>
`

var (
	subjectT = texttemplate.Must(texttemplate.New("subject").Parse(subjectTmpl))
	textT    = texttemplate.Must(texttemplate.New("text").Funcs(funcs).Parse(textTmpl))
	htmlT    = htmltemplate.Must(htmltemplate.New("html").Funcs(funcs).Parse(htmlTmpl))
)

// Rendered is a ready-to-send email body pair.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

func Render(n Notification) (Rendered, error) {
	var subj, text, html bytes.Buffer
	if err := subjectT.Execute(&subj, n); err != nil {
		return Rendered{}, fmt.Errorf("render subject: %w", err)
	}
	if err := textT.Execute(&text, n); err != nil {
		return Rendered{}, fmt.Errorf("render text body: %w", err)
	}
	if err := htmlT.Execute(&html, n); err != nil {
		return Rendered{}, fmt.Errorf("render html body: %w", err)
	}
	return Rendered{Subject: subj.String(), Text: text.String(), HTML: html.String()}, nil
}
