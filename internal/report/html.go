// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Simulation Literature Report - {{.RunID}}</title>
  <style>
    :root { --bg: #f6f8f5; --ink: #1f2a21; --muted: #5c695f; --card: #ffffff; --line: #d4ddd5; --accent: #0d6b46; }
    body { margin: 0; background: var(--bg); color: var(--ink); font-family: "IBM Plex Sans", "Segoe UI", Arial, sans-serif; line-height: 1.45; }
    .wrap { max-width: 1080px; margin: 30px auto; padding: 0 16px; }
    .card { background: var(--card); border: 1px solid var(--line); border-radius: 12px; padding: 18px; box-shadow: 0 5px 16px rgba(0, 0, 0, 0.04); }
    h1, h2, h3, h4 { margin-top: 0; }
    h2, h3, h4 { color: var(--accent); }
    h3 { margin-top: 1.4em; padding-top: 0.8em; border-top: 1px solid var(--line); }
    p, li { color: var(--muted); }
    code { background: #eef2ee; padding: 0 4px; border-radius: 4px; }
    a { color: #0b57a5; text-decoration: none; }
    a:hover { text-decoration: underline; }
  </style>
</head>
<body>
  <div class="wrap">
    <section class="card">
{{.Body}}
    </section>
  </div>
</body>
</html>
`))

// HTML renders the Markdown report as a standalone styled page. Raw HTML in
// the Markdown is not passed through, so titles and summaries from remote
// sources are escaped.
func HTML(runID, markdown string) (string, error) {
	var body bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}

	var out bytes.Buffer
	err := pageTmpl.Execute(&out, struct {
		RunID string
		Body  template.HTML
	}{runID, template.HTML(body.String())})
	if err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}
	return out.String(), nil
}
