package services

import (
	"fmt"
	"html/template"
	"strings"
)

type emailField struct {
	Label string
	Value string
}

// emailLayout is the shared inline-styled shell for outgoing portal mail.
type emailLayout struct {
	Heading    string
	Paragraphs []string
	Fields     []emailField
	ButtonText string
	ButtonURL  string
	Footer     string
}

var strongTagRestorer = strings.NewReplacer(
	"&lt;strong&gt;", "<strong>",
	"&lt;/strong&gt;", "</strong>",
)

func (l emailLayout) render() string {
	var body strings.Builder
	for _, p := range l.Paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		escaped := template.HTMLEscapeString(p)
		escaped = strings.ReplaceAll(strings.ReplaceAll(escaped, "\r\n", "\n"), "\n", "<br />")
		body.WriteString(`<p style="margin:0 0 18px 0;line-height:1.7;word-break:break-word;">`)
		body.WriteString(strongTagRestorer.Replace(escaped))
		body.WriteString("</p>\n")
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%[1]s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
<div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;">
<h1 style="margin:0;text-align:center;font-size:22px;font-weight:700;color:#111827;line-height:1.35;">%[1]s</h1>
<div style="margin-top:20px;color:#1f2937;font-size:16px;line-height:1.75;">
%[2]s</div>
%[3]s%[4]s%[5]s</div>
</div>
</body>
</html>`,
		template.HTMLEscapeString(l.Heading),
		body.String(),
		l.fieldTable(),
		l.button(),
		l.footer(),
	)
}

func (l emailLayout) fieldTable() string {
	rows := make([]emailField, 0, len(l.Fields))
	for _, f := range l.Fields {
		f.Label, f.Value = strings.TrimSpace(f.Label), strings.TrimSpace(f.Value)
		if f.Label != "" && f.Value != "" {
			rows = append(rows, f)
		}
	}
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<table role="presentation" cellpadding="0" cellspacing="0" width="100%" style="margin:0 0 24px 0;border:1px solid #e5e7eb;border-radius:12px;background-color:#f9fafb;">` + "\n")
	for i, row := range rows {
		border := "border-bottom:1px solid #e5e7eb;"
		if i == len(rows)-1 {
			border = ""
		}
		fmt.Fprintf(&b, `<tr><td style="padding:12px 16px;font-size:13px;color:#6b7280;width:38%%;%[1]s">%[2]s</td><td style="padding:12px 16px;font-size:15px;color:#111827;font-weight:600;white-space:pre-wrap;%[1]s">%[3]s</td></tr>`+"\n",
			border, template.HTMLEscapeString(row.Label), template.HTMLEscapeString(row.Value))
	}
	b.WriteString("</table>\n")
	return b.String()
}

func (l emailLayout) button() string {
	if strings.TrimSpace(l.ButtonText) == "" || strings.TrimSpace(l.ButtonURL) == "" {
		return ""
	}
	return fmt.Sprintf(`<div style="text-align:center;margin:12px 0 24px 0;"><a href="%s" style="display:inline-block;padding:12px 28px;background-color:#2563eb;color:#ffffff;text-decoration:none;border-radius:999px;font-weight:600;">%s</a></div>`+"\n",
		template.HTMLEscapeString(l.ButtonURL), template.HTMLEscapeString(l.ButtonText))
}

func (l emailLayout) footer() string {
	if strings.TrimSpace(l.Footer) == "" {
		return ""
	}
	return fmt.Sprintf(`<div style="color:#6b7280;font-size:13px;line-height:1.7;">%s</div>`+"\n", template.HTMLEscapeString(l.Footer))
}
