package lessonplan

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giaoan/api/internal/apperr"
)

func TestInputDecodesFormPeriods(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Periods
	}{
		{"empty string", `{"duration":{"level":"THCS","periods":""}}`, 0},
		{"string", `{"duration":{"level":"THCS","periods":"2"}}`, 2},
		{"number", `{"duration":{"level":"THCS","periods":3}}`, 3},
		{"missing", `{"duration":{"level":"THCS"}}`, 0},
		{"null", `{"duration":{"level":"THCS","periods":null}}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in Input
			require.NoError(t, json.Unmarshal([]byte(tt.body), &in))
			assert.Equal(t, tt.want, in.Duration.Periods)
		})
	}
}

func TestInputRejectsFractionalPeriods(t *testing.T) {
	var in Input
	assert.Error(t, json.Unmarshal([]byte(`{"duration":{"periods":"1.5"}}`), &in))
}

func TestValidate(t *testing.T) {
	ok := DefaultInput()
	assert.NoError(t, ok.Validate())

	bad := DefaultInput()
	bad.CongVan = "9999"
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	neg := DefaultInput()
	neg.Duration.Periods = -1
	assert.Error(t, neg.Validate())

	lvl := DefaultInput()
	lvl.Duration.Level = "DaiHoc"
	assert.Error(t, lvl.Validate())
}

func TestNormalize(t *testing.T) {
	in := Input{Subject: "  Toán ", LessonTitle: "\tBài 3\n"}.Normalize()
	assert.Equal(t, "Toán", in.Subject)
	assert.Equal(t, "Bài 3", in.LessonTitle)
	assert.Equal(t, LevelLowerSecondary, in.Duration.Level)
	assert.Equal(t, CongVan5512, in.CongVan)
}

func TestLevel(t *testing.T) {
	assert.Equal(t, 35, LevelPrimary.MinutesPerPeriod())
	assert.Equal(t, 45, LevelLowerSecondary.MinutesPerPeriod())
	assert.Equal(t, "Tiểu học", LevelPrimary.Label())
}

func TestBackfillOnlyFillsFromPlan(t *testing.T) {
	in := Input{Subject: "Toán", Grade: "", LessonTitle: "Tên của tôi", CongVan: CongVan2345}
	plan := &Plan2345{Basics: Basics{Subject: "", Grade: "3", LessonTitle: "Tên của AI"}}

	got := in.Backfill(plan)

	assert.Equal(t, "Toán", got.Subject, "empty plan subject keeps input")
	assert.Equal(t, "3", got.Grade)
	assert.Equal(t, "Tên của AI", got.LessonTitle)
	assert.Equal(t, Text(""), plan.Subject, "plan is not touched")
	assert.Equal(t, "Tên của tôi", in.LessonTitle, "receiver is a copy")
}

func TestBackfillNilPlan(t *testing.T) {
	in := DefaultInput()
	assert.Equal(t, in, in.Backfill(nil))
}

func TestPeriodsMarshal(t *testing.T) {
	b, err := json.Marshal(Duration{Level: LevelPrimary, Periods: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"TieuHoc","periods":"2"}`, string(b))

	b, err = json.Marshal(Duration{Level: LevelPrimary})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"TieuHoc","periods":""}`, string(b))
}
