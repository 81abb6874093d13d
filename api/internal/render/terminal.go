package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
)

type TerminalOptions struct {
	// Width is the wrap width; 0 means 100.
	Width int
	// Style is a glamour standard style name ("dark", "light", "notty").
	// Empty picks one from the terminal background.
	Style string
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")).MarginTop(1)
	groupStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// Terminal renders the interactive view: field markdown through glamour,
// tables through lipgloss, formulas as Unicode text.
func Terminal(doc Document, opts TerminalOptions) (string, error) {
	if opts.Width <= 0 {
		opts.Width = 100
	}
	styleOpt := glamour.WithAutoStyle()
	if opts.Style != "" {
		styleOpt = glamour.WithStandardStyle(opts.Style)
	}
	md, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(opts.Width))
	if err != nil {
		return "", err
	}

	t := &terminalWriter{md: md, width: opts.Width}
	t.line(headingStyle.Render(doc.Heading))
	for _, l := range doc.Info {
		t.line(labelStyle.Render(l.Label+":") + " " + l.Value)
	}
	for _, s := range doc.Sections {
		t.line(sectionStyle.Render(s.Heading()))
		for _, b := range s.Blocks {
			if err := t.block(b); err != nil {
				return "", err
			}
		}
	}
	return t.sb.String(), nil
}

type terminalWriter struct {
	sb    strings.Builder
	md    *glamour.TermRenderer
	width int
}

func (t *terminalWriter) line(s string) {
	t.sb.WriteString(s)
	t.sb.WriteByte('\n')
}

func (t *terminalWriter) block(b Block) error {
	switch b := b.(type) {
	case Field:
		if b.Label != "" {
			t.line(labelStyle.Render(b.Label + ":"))
		}
		out, err := t.md.Render(replaceMathWithText(b.Body))
		if err != nil {
			return err
		}
		t.sb.WriteString(out)
	case Group:
		t.line("")
		t.line(groupStyle.Render(b.Title))
		for _, inner := range b.Blocks {
			if err := t.block(inner); err != nil {
				return err
			}
		}
	case Table:
		if b.Label != "" {
			t.line(labelStyle.Render(b.Label + ":"))
		}
		t.line(t.table(b))
	}
	return nil
}

// table pre-wraps every cell to its column share so lipgloss only has to
// lay the grid out.
func (t *terminalWriter) table(b Table) string {
	colWidth := (t.width - len(b.Columns) - 1) / len(b.Columns)
	if colWidth < 12 {
		colWidth = 12
	}
	wrap := cellStyle.Width(colWidth)

	headers := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		headers[i] = headerStyle.Width(colWidth).Render(strings.ToUpper(c))
	}
	rows := make([][]string, 0, len(b.Rows))
	for _, row := range b.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = wrap.Render(replaceMathWithText(c))
		}
		rows = append(rows, cells)
	}
	return ltable.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		String()
}
