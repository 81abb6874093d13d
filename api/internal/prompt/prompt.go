// Package prompt assembles the instruction sent with the textbook photos.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"giaoan/api/internal/lessonplan"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

var templateNames = map[lessonplan.CongVan]string{
	lessonplan.CongVan5512: "5512.tmpl",
	lessonplan.CongVan2345: "2345.tmpl",
}

type data struct {
	TitleClause    string
	SubjectClause  string
	GradeClause    string
	DurationClause string
	// DurationLine is the resolved duration or the "model proposes" marker.
	DurationLine string
}

// Build renders the instruction for in.CongVan. It has no side effects and
// returns the same text for the same input.
func Build(in lessonplan.Input) (string, error) {
	name, ok := templateNames[in.CongVan]
	if !ok {
		return "", fmt.Errorf("prompt: unknown template %q", in.CongVan)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, resolve(in)); err != nil {
		return "", fmt.Errorf("prompt: render %s: %w", name, err)
	}
	return buf.String(), nil
}

func resolve(in lessonplan.Input) data {
	d := data{}

	if in.LessonTitle != "" {
		d.TitleClause = fmt.Sprintf("Tên bài dạy đã được người dùng cung cấp là: %q. Hãy sử dụng chính xác tên này.", in.LessonTitle)
	} else {
		d.TitleClause = "**Xác định Tên Bài Dạy:** Dựa vào nội dung hình ảnh, hãy xác định chính xác tên bài dạy."
	}

	if in.Subject != "" {
		d.SubjectClause = fmt.Sprintf("Môn học đã được người dùng cung cấp là: %q. Hãy sử dụng chính xác môn học này.", in.Subject)
	} else {
		d.SubjectClause = "**Xác định Môn Học:** Dựa vào nội dung hình ảnh, hãy xác định chính xác môn học (ví dụ: Toán, Tiếng Việt, Tự nhiên và Xã hội,...)."
	}

	if in.Grade != "" {
		d.GradeClause = fmt.Sprintf("Lớp đã được người dùng cung cấp là: %q. Hãy sử dụng chính xác lớp này.", in.Grade)
	} else {
		d.GradeClause = "**Xác định Lớp:** Dựa vào nội dung hình ảnh, hãy xác định chính xác lớp (ví dụ: 1, 2, 3, 4, 5)."
	}

	if phrase := DurationPhrase(in.Duration); phrase != "" {
		d.DurationLine = phrase
		d.DurationClause = fmt.Sprintf(`**PHÂN TÍCH KỸ LƯỠNG THỜI LƯỢNG ĐÃ CHO:**
- "Thời gian thực hiện" được cung cấp là: **%s**. Đây là kim chỉ nam cho TOÀN BỘ nội dung bạn tạo ra.
- Dựa vào thời lượng này, hãy tạo ra một giáo án có độ dài và chi tiết tương xứng TUYỆT ĐỐI. Một giáo án 2, 3 tiết phải chi tiết và dài hơn đáng kể so với 1 tiết.`, phrase)
	} else {
		d.DurationLine = "(AI sẽ đề xuất)"
		d.DurationClause = `**PHÂN TÍCH VÀ ĐỀ XUẤT THỜI LƯỢNG:**
- "Thời gian thực hiện" KHÔNG được cung cấp.
- Nhiệm vụ của bạn là **PHÂN TÍCH SÂU** khối lượng kiến thức và bài tập trong hình ảnh SGK được cung cấp để **TỰ ĐỀ XUẤT** thời lượng hợp lý nhất.
- Thời lượng bạn đề xuất sẽ là kim chỉ nam cho độ dài và chi tiết của toàn bộ giáo án bạn sắp tạo. Hãy đảm bảo nội dung bạn tạo ra sau đó phải tương xứng TUYỆT ĐỐI với thời lượng này.`
	}
	return d
}

// DurationPhrase describes a fixed duration, e.g. "2 tiết (Cấp THCS, 45
// phút/tiết, tổng 90 phút)". It is empty when no period count was given.
func DurationPhrase(d lessonplan.Duration) string {
	if d.Periods <= 0 {
		return ""
	}
	n := int(d.Periods)
	minutes := d.Level.MinutesPerPeriod()
	return fmt.Sprintf("%d tiết (Cấp %s, %d phút/tiết, tổng %d phút)", n, d.Level.Label(), minutes, n*minutes)
}
