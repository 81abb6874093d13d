// Package render turns a parsed lesson plan into its display and export
// forms. Build reads the plan once; every output format is a projection of
// the resulting Document.
package render

import (
	"strconv"
	"strings"

	"giaoan/api/internal/lessonplan"
)

type Document struct {
	Template lessonplan.CongVan
	Heading  string
	Title    string
	Info     []InfoLine
	Sections []Section
}

type InfoLine struct {
	Label string
	Value string
}

type Section struct {
	Numeral string
	Title   string
	Blocks  []Block
}

func (s Section) Heading() string { return s.Numeral + ". " + s.Title }

// Block is one of Field, Group or Table.
type Block interface{ isBlock() }

// Field is a labelled piece of markdown. An empty Label means the body
// stands alone under the section heading.
type Field struct {
	Label string
	Body  string
}

// Group is a titled sub-section, used for 5512 activities.
type Group struct {
	Title  string
	Blocks []Block
}

type TableStyle int

const (
	// TableInline is a small labelled table inside an activity.
	TableInline TableStyle = iota
	// TableRecords is a section-level table whose rows are separate records.
	TableRecords
)

type Table struct {
	Label   string
	Style   TableStyle
	Columns []string
	Rows    [][]string
}

func (Field) isBlock() {}
func (Group) isBlock() {}
func (Table) isBlock() {}

const headingBase = "KẾ HOẠCH BÀI DẠY"

// Build reads the plan with fallbacks from the input for header values the
// model left blank. Empty fields, rows, groups and sections are dropped so
// that every projection shows the same content.
func Build(plan lessonplan.Plan, in lessonplan.Input) Document {
	var basics lessonplan.Basics
	if plan != nil {
		basics = plan.Info()
	}

	doc := Document{Heading: headingBase}
	switch p := plan.(type) {
	case *lessonplan.Plan5512:
		doc.Template = lessonplan.CongVan5512
		doc.Sections = sections5512(p)
	case *lessonplan.Plan2345:
		doc.Template = lessonplan.CongVan2345
		doc.Sections = sections2345(p)
	case *lessonplan.UnknownPlan, nil:
		// header only
	}
	if doc.Template != "" {
		doc.Heading += " (GIÁO ÁN - CÔNG VĂN " + string(doc.Template) + ")"
	}

	doc.Title = firstNonEmpty(clean(basics.LessonTitle), in.LessonTitle)
	duration := clean(basics.Duration)
	if duration == "" && in.Duration.Periods > 0 {
		duration = strconv.Itoa(int(in.Duration.Periods)) + " tiết"
	}
	doc.Info = infoLines(
		InfoLine{"Môn học/Hoạt động giáo dục", firstNonEmpty(clean(basics.Subject), in.Subject)},
		InfoLine{"Lớp", firstNonEmpty(clean(basics.Grade), in.Grade)},
		InfoLine{"Tên bài dạy", doc.Title},
		InfoLine{"Thời gian thực hiện", duration},
		InfoLine{"Giáo viên", strings.TrimSpace(in.TeacherName)},
	)
	return doc
}

func sections5512(p *lessonplan.Plan5512) []Section {
	var out []Section
	out = appendSection(out, "I", "MỤC TIÊU",
		field("1. Về kiến thức", p.MucTieu.KienThuc),
		field("2. Về năng lực", p.MucTieu.NangLuc),
		field("3. Về phẩm chất", p.MucTieu.PhamChat),
	)
	out = appendSection(out, "II", "THIẾT BỊ DẠY HỌC VÀ HỌC LIỆU", field("", p.ThietBi))

	var groups []Block
	for _, a := range p.TienTrinh.Ordered() {
		blocks := compact(
			field("a) Mục tiêu", a.Activity.MucTieu),
			field("b) Nội dung", a.Activity.NoiDung),
			field("c) Sản phẩm", a.Activity.SanPham),
			table("d) Tổ chức thực hiện", TableInline,
				[]string{"Hoạt động của GV và HS", "Sản phẩm dự kiến"},
				[]lessonplan.Text{a.Activity.ToChuc.NoiDung, a.Activity.ToChuc.SanPham},
			),
		)
		if len(blocks) > 0 {
			groups = append(groups, Group{Title: a.Title(), Blocks: blocks})
		}
	}
	return appendSection(out, "III", "TIẾN TRÌNH DẠY HỌC", groups...)
}

func sections2345(p *lessonplan.Plan2345) []Section {
	var out []Section
	out = appendSection(out, "I", "YÊU CẦU CẦN ĐẠT", field("", p.YeuCauCanDat))
	out = appendSection(out, "II", "ĐỒ DÙNG DẠY HỌC", field("", p.DoDungDayHoc))

	rows := make([][]lessonplan.Text, 0, len(p.HoatDongDayHoc))
	for _, a := range p.HoatDongDayHoc {
		rows = append(rows, []lessonplan.Text{a.HoatDong, a.YeuCau, a.DieuChinh})
	}
	out = appendSection(out, "III", "CÁC HOẠT ĐỘNG DẠY HỌC",
		table("", TableRecords,
			[]string{"Hoạt động dạy học chủ yếu", "Yêu cầu cần đạt", "Điều chỉnh"},
			rows...,
		),
	)
	return appendSection(out, "IV", "ĐIỀU CHỈNH SAU BÀI DẠY", field("", p.DieuChinhSauBaiDay))
}

func appendSection(out []Section, numeral, title string, blocks ...Block) []Section {
	blocks = compact(blocks...)
	if len(blocks) == 0 {
		return out
	}
	return append(out, Section{Numeral: numeral, Title: title, Blocks: blocks})
}

// field returns nil for empty text so compact can drop it.
func field(label string, body lessonplan.Text) Block {
	s := clean(body)
	if s == "" {
		return nil
	}
	return Field{Label: label, Body: s}
}

// table drops rows whose cells are all empty; a table without rows is nil.
func table(label string, style TableStyle, columns []string, rows ...[]lessonplan.Text) Block {
	t := Table{Label: label, Style: style, Columns: columns}
	for _, r := range rows {
		cells := make([]string, len(columns))
		filled := false
		for i := range cells {
			if i < len(r) {
				cells[i] = clean(r[i])
			}
			filled = filled || cells[i] != ""
		}
		if filled {
			t.Rows = append(t.Rows, cells)
		}
	}
	if len(t.Rows) == 0 {
		return nil
	}
	return t
}

func compact(blocks ...Block) []Block {
	out := blocks[:0:0]
	for _, b := range blocks {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}

func infoLines(lines ...InfoLine) []InfoLine {
	out := lines[:0:0]
	for _, l := range lines {
		if l.Value != "" {
			out = append(out, l)
		}
	}
	return out
}

func clean(t lessonplan.Text) string {
	return strings.TrimSpace(string(t))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
