package render

import (
	"bytes"
	"html"
	htmltemplate "html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// HTMLRenderer converts field markdown to sanitised HTML with formulas.
// It is safe for concurrent use.
type HTMLRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithUnsafe()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

var defaultHTML = NewHTMLRenderer()

// HTML renders the standalone printable document used by the .doc and PDF
// exports.
func HTML(doc Document) string {
	return defaultHTML.Document(doc)
}

// Fragment converts one markdown field. Formulas are cut out before
// markdown parsing so that underscores and asterisks inside TeX survive, and
// put back after sanitising.
func (r *HTMLRenderer) Fragment(src string) string {
	text, found := extractMath(src)
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		// goldmark only fails on writer errors; a bytes.Buffer has none
		buf.Reset()
		buf.WriteString("<p>" + html.EscapeString(text) + "</p>")
	}
	clean := r.policy.Sanitize(buf.String())
	return strings.TrimSpace(restoreMath(clean, found, formulaHTML))
}

const pageStyle = `
  body { font-family: 'Times New Roman', Times, serif; font-size: 13pt; line-height: 1.5; }
  h3, h4 { font-weight: bold; font-family: 'Times New Roman', Times, serif; }
  h3 { font-size: 14pt; margin-top: 20px; }
  h4 { font-size: 13pt; margin-top: 15px; }
  p, div { margin-bottom: 10px; }
  table { border-collapse: collapse; width: 100%; margin-top: 10px; page-break-inside: avoid; }
  tr { page-break-inside: avoid; }
  th, td { border: 1px solid black; padding: 8px; text-align: left; vertical-align: top; }
  th { background-color: #f2f2f2; font-weight: bold; }
  ul, ol { padding-left: 40px; margin: 0; }
  pre, code { font-family: 'Times New Roman', Times, serif; }
  .header { text-align: center; }
  .math { font-style: normal; white-space: nowrap; }
  .math-display { display: block; text-align: center; margin: 8px 0; }
  .frac { display: inline-block; vertical-align: middle; text-align: center; }
  .frac .num { display: block; border-bottom: 1px solid black; padding: 0 2px; }
  .frac .den { display: block; padding: 0 2px; }
  .radicand, .overline { text-decoration: overline; }
`

var pageTemplate = htmltemplate.Must(htmltemplate.New("page").Parse(`<!DOCTYPE html>
<html lang="vi">
<head>
<meta charset="UTF-8">
<title>GiaoAn_{{.Title}}</title>
<style>{{.Style}}</style>
</head>
<body>
<div class="header">
<h3>{{.Heading}}</h3>
{{range .Info}}<p><strong>{{.Label}}:</strong> {{.Value}}</p>
{{end}}</div>
{{.Body}}
</body>
</html>
`))

type pageData struct {
	Title   string
	Style   htmltemplate.CSS
	Heading string
	Info    []InfoLine
	Body    htmltemplate.HTML
}

func (r *HTMLRenderer) Document(doc Document) string {
	var body strings.Builder
	for _, s := range doc.Sections {
		body.WriteString("<h3>" + html.EscapeString(s.Heading()) + "</h3>\n")
		for _, b := range s.Blocks {
			r.block(&body, b)
		}
	}

	title := doc.Title
	if title == "" {
		title = "Untitled"
	}
	var out bytes.Buffer
	// the template only fails on writer errors
	_ = pageTemplate.Execute(&out, pageData{
		Title:   title,
		Style:   htmltemplate.CSS(pageStyle),
		Heading: doc.Heading,
		Info:    doc.Info,
		Body:    htmltemplate.HTML(body.String()),
	})
	return out.String()
}

func (r *HTMLRenderer) block(sb *strings.Builder, b Block) {
	switch b := b.(type) {
	case Field:
		sb.WriteString("<div>")
		if b.Label != "" {
			sb.WriteString("<strong>" + html.EscapeString(b.Label) + ":</strong>\n")
		}
		sb.WriteString(r.Fragment(b.Body))
		sb.WriteString("</div>\n")
	case Group:
		sb.WriteString("<h4>" + html.EscapeString(b.Title) + "</h4>\n")
		for _, inner := range b.Blocks {
			r.block(sb, inner)
		}
	case Table:
		if b.Label != "" {
			sb.WriteString("<p><strong>" + html.EscapeString(b.Label) + ":</strong></p>\n")
		}
		sb.WriteString("<table>\n<thead><tr>")
		for _, c := range b.Columns {
			head := c
			if b.Style == TableInline {
				head = strings.ToUpper(c)
			}
			sb.WriteString("<th>" + html.EscapeString(head) + "</th>")
		}
		sb.WriteString("</tr></thead>\n<tbody>\n")
		for _, row := range b.Rows {
			sb.WriteString(`<tr style="page-break-inside: avoid;">`)
			for _, cell := range row {
				sb.WriteString("<td>" + r.Fragment(cell) + "</td>")
			}
			sb.WriteString("</tr>\n")
		}
		sb.WriteString("</tbody>\n</table>\n")
	}
}
