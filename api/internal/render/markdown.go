package render

import (
	"strings"
)

// Markdown renders the document as GitHub-flavoured markdown. Field bodies
// are already markdown and are embedded unchanged; formulas keep their TeX.
func Markdown(doc Document) string {
	var sb strings.Builder
	sb.WriteString("# " + doc.Heading + "\n\n")
	for _, l := range doc.Info {
		sb.WriteString("- **" + l.Label + ":** " + l.Value + "\n")
	}
	for _, s := range doc.Sections {
		sb.WriteString("\n## " + s.Heading() + "\n")
		for _, b := range s.Blocks {
			markdownBlock(&sb, b, 3)
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func markdownBlock(sb *strings.Builder, b Block, level int) {
	switch b := b.(type) {
	case Field:
		sb.WriteString("\n")
		if b.Label != "" {
			sb.WriteString("**" + b.Label + ":**\n\n")
		}
		sb.WriteString(b.Body + "\n")
	case Group:
		sb.WriteString("\n" + strings.Repeat("#", level) + " " + b.Title + "\n")
		for _, inner := range b.Blocks {
			markdownBlock(sb, inner, level+1)
		}
	case Table:
		sb.WriteString("\n")
		if b.Label != "" {
			sb.WriteString("**" + b.Label + ":**\n\n")
		}
		sb.WriteString(markdownTable(b))
	}
}

func markdownTable(t Table) string {
	var sb strings.Builder
	sb.WriteString("| " + strings.Join(t.Columns, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", len(t.Columns)) + "\n")
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = tableCell(c)
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return sb.String()
}

// tableCell keeps a multi-line field inside one GFM table cell.
func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br>")
}
