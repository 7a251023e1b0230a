package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const htmlHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; color: #222; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ddd; padding: 0.35rem 0.6rem; text-align: left; vertical-align: top; }
th { background: #f5f5f5; }
pre { background: #f7f7f7; padding: 0.75rem; overflow-x: auto; white-space: pre-wrap; }
blockquote { color: #a33; border-left: 3px solid #e99; margin-left: 0; padding-left: 1rem; }
</style>
</head>
<body>
`

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

// FormatHTML renders the markdown report as a standalone HTML page.
// Raw HTML inside prompt text is not passed through.
func FormatHTML(r *Report) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(FormatMarkdown(r)), &body); err != nil {
		return "", fmt.Errorf("rendering html report: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, htmlHead, html.EscapeString(fmt.Sprintf("prompt-evals report %s", r.timestamp().Format("2006-01-02 15:04"))))
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}
