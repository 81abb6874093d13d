package render

import (
	"strings"
)

// RecordSeparator sits between activity records in plain text.
const RecordSeparator = "\n\n---\n\n"

// PlainText flattens the document for the clipboard and text export.
// Field text is kept verbatim, markdown and TeX included.
func PlainText(doc Document) string {
	header := make([]string, 0, len(doc.Info)+1)
	header = append(header, doc.Heading)
	for _, l := range doc.Info {
		header = append(header, l.Label+": "+l.Value)
	}

	parts := []string{strings.Join(header, "\n")}
	for _, s := range doc.Sections {
		parts = append(parts, s.Heading()+"\n"+textBlocks(s.Blocks))
	}
	return strings.Join(parts, "\n\n")
}

func textBlocks(blocks []Block) string {
	var sb strings.Builder
	for i, b := range blocks {
		if i > 0 {
			_, prevGroup := blocks[i-1].(Group)
			_, group := b.(Group)
			if prevGroup && group {
				sb.WriteString(RecordSeparator)
			} else {
				sb.WriteString("\n")
			}
		}
		sb.WriteString(textBlock(b))
	}
	return sb.String()
}

func textBlock(b Block) string {
	switch b := b.(type) {
	case Field:
		if b.Label == "" {
			return b.Body
		}
		return b.Label + ": " + b.Body
	case Group:
		return b.Title + "\n" + textBlocks(b.Blocks)
	case Table:
		return textTable(b)
	}
	return ""
}

func textTable(t Table) string {
	switch t.Style {
	case TableInline:
		lines := []string{t.Label + ":"}
		for _, row := range t.Rows {
			for i, cell := range row {
				if cell != "" {
					lines = append(lines, "  - "+strings.ToUpper(t.Columns[i])+": "+cell)
				}
			}
		}
		return strings.Join(lines, "\n")
	default:
		records := make([]string, 0, len(t.Rows))
		for _, row := range t.Rows {
			cells := make([]string, 0, len(row))
			for i, cell := range row {
				if cell != "" {
					cells = append(cells, strings.ToUpper(t.Columns[i])+":\n"+cell)
				}
			}
			records = append(records, strings.Join(cells, "\n\n"))
		}
		out := strings.Join(records, RecordSeparator)
		if t.Label != "" {
			out = t.Label + ":\n" + out
		}
		return out
	}
}
