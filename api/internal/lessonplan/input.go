package lessonplan

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"giaoan/api/internal/apperr"
)

// CongVan is the template code that selects the output schema.
type CongVan string

const (
	CongVan5512 CongVan = "5512"
	CongVan2345 CongVan = "2345"
)

func (c *CongVan) UnmarshalJSON(b []byte) error {
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	*c = CongVan(strings.TrimSpace(string(t)))
	return nil
}

type Level string

const (
	LevelPrimary        Level = "TieuHoc"
	LevelLowerSecondary Level = "THCS"
)

// MinutesPerPeriod is the length of one lesson period at this level.
func (l Level) MinutesPerPeriod() int {
	if l == LevelPrimary {
		return 35
	}
	return 45
}

func (l Level) Label() string {
	if l == LevelPrimary {
		return "Tiểu học"
	}
	return "THCS"
}

// Periods is the number of lesson periods; zero means "let the model propose".
// The form sends it as a string, API clients usually as a number.
type Periods int

func (p *Periods) UnmarshalJSON(b []byte) error {
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	s := strings.TrimSpace(string(t))
	if s == "" {
		*p = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("periods: %q is not a whole number", s)
	}
	*p = Periods(n)
	return nil
}

func (p Periods) MarshalJSON() ([]byte, error) {
	if p == 0 {
		return json.Marshal("")
	}
	return json.Marshal(strconv.Itoa(int(p)))
}

type Duration struct {
	Level   Level   `json:"level" validate:"oneof=TieuHoc THCS"`
	Periods Periods `json:"periods" validate:"gte=0,lte=20"`
}

// Input is what the teacher fills in before generating.
type Input struct {
	TeacherName string   `json:"teacherName" validate:"max=200"`
	Subject     string   `json:"subject,omitempty" validate:"max=200"`
	Grade       string   `json:"grade,omitempty" validate:"max=50"`
	Duration    Duration `json:"duration"`
	LessonTitle string   `json:"lessonTitle,omitempty" validate:"max=500"`
	CongVan     CongVan  `json:"congVan" validate:"oneof=5512 2345"`
}

// DefaultInput is the state of a fresh form.
func DefaultInput() Input {
	return Input{
		TeacherName: "Nguyễn Văn A",
		Duration:    Duration{Level: LevelLowerSecondary},
		CongVan:     CongVan5512,
	}
}

var validate = validator.New()

// Normalize trims free text and fills the enum defaults of a fresh form.
func (in Input) Normalize() Input {
	in.TeacherName = strings.TrimSpace(in.TeacherName)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Grade = strings.TrimSpace(in.Grade)
	in.LessonTitle = strings.TrimSpace(in.LessonTitle)
	if in.Duration.Level == "" {
		in.Duration.Level = LevelLowerSecondary
	}
	if in.CongVan == "" {
		in.CongVan = CongVan5512
	}
	return in
}

func (in Input) Validate() error {
	if err := validate.Struct(in); err != nil {
		return apperr.Wrap(err, apperr.CodeInvalidInput, apperr.ErrInvalidInput.Message)
	}
	return nil
}

// Backfill copies the lesson title, subject and grade the model chose into
// a copy of the input. Only non-empty plan values are taken; the plan itself
// is never modified.
func (in Input) Backfill(p Plan) Input {
	if p == nil {
		return in
	}
	b := p.Info()
	if !b.LessonTitle.Empty() {
		in.LessonTitle = strings.TrimSpace(string(b.LessonTitle))
	}
	if !b.Subject.Empty() {
		in.Subject = strings.TrimSpace(string(b.Subject))
	}
	if !b.Grade.Empty() {
		in.Grade = strings.TrimSpace(string(b.Grade))
	}
	return in
}
