package lessonplan

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Plan is a generated lesson plan. The concrete type is one of *Plan5512,
// *Plan2345 or *UnknownPlan; callers switch on it exhaustively.
type Plan interface {
	Template() CongVan
	Info() Basics
	isPlan()
}

// Basics are the header fields both templates share.
type Basics struct {
	LessonTitle Text `json:"lessonTitle,omitempty"`
	Subject     Text `json:"subject,omitempty"`
	Grade       Text `json:"grade,omitempty"`
	Duration    Text `json:"duration,omitempty"`
}

type Objectives struct {
	KienThuc Text `json:"kienThuc,omitempty"`
	NangLuc  Text `json:"nangLuc,omitempty"`
	PhamChat Text `json:"phamChat,omitempty"`
}

func (o *Objectives) UnmarshalJSON(b []byte) error {
	type plain Objectives
	return decodeObject(b, (*plain)(o))
}

// Implementation is the "d) Tổ chức thực hiện" table of a 5512 activity.
type Implementation struct {
	NoiDung Text `json:"noiDung,omitempty"`
	SanPham Text `json:"sanPham,omitempty"`
}

func (m *Implementation) UnmarshalJSON(b []byte) error {
	type plain Implementation
	return decodeObject(b, (*plain)(m))
}

type Activity5512 struct {
	MucTieu Text           `json:"mucTieu,omitempty"`
	NoiDung Text           `json:"noiDung,omitempty"`
	SanPham Text           `json:"sanPham,omitempty"`
	ToChuc  Implementation `json:"toChuc,omitempty"`
}

func (a *Activity5512) UnmarshalJSON(b []byte) error {
	type plain Activity5512
	return decodeObject(b, (*plain)(a))
}

const activityKeyPrefix = "hoatDong"

// Process maps activity keys ("hoatDong1", ...) to activities. Storage order
// means nothing; use Ordered.
type Process map[string]Activity5512

// UnmarshalJSON accepts the keyed object the prompt asks for and, since
// models sometimes ignore that, a plain array numbered from 1.
func (p *Process) UnmarshalJSON(b []byte) error {
	switch jsonKind(b) {
	case '{':
		var m map[string]Activity5512
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
		*p = m
	case '[':
		var list []Activity5512
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		m := make(map[string]Activity5512, len(list))
		for i, a := range list {
			m[activityKeyPrefix+strconv.Itoa(i+1)] = a
		}
		*p = m
	default:
		*p = nil
	}
	return nil
}

// OrderedActivity is one entry of a Process in render order.
type OrderedActivity struct {
	Key       string
	Number    int
	HasNumber bool
	Activity  Activity5512
}

// Title is the canonical heading of the activity.
func (a OrderedActivity) Title() string {
	if a.HasNumber {
		return ActivityTitle(a.Number)
	}
	suffix := strings.TrimPrefix(a.Key, activityKeyPrefix)
	if suffix == "" {
		suffix = a.Key
	}
	return "Hoạt động " + suffix
}

var activityTitles = map[int]string{
	1: "Hoạt động 1: Mở đầu (Xác định vấn đề/nhiệm vụ học tập)",
	2: "Hoạt động 2: Hình thành kiến thức mới",
	3: "Hoạt động 3: Luyện tập",
	4: "Hoạt động 4: Vận dụng",
}

func ActivityTitle(n int) string {
	if t, ok := activityTitles[n]; ok {
		return t
	}
	return "Hoạt động " + strconv.Itoa(n)
}

// activityNumber reads the leading digits after the "hoatDong" prefix.
func activityNumber(key string) (int, bool) {
	if !strings.HasPrefix(key, activityKeyPrefix) {
		return 0, false
	}
	suffix := strings.TrimPrefix(key, activityKeyPrefix)
	end := 0
	for end < len(suffix) && suffix[end] >= '0' && suffix[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(suffix[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Ordered sorts activities by the number after "hoatDong". Equal numbers
// fall back to key order; keys without a number go last, by key.
func (p Process) Ordered() []OrderedActivity {
	out := make([]OrderedActivity, 0, len(p))
	for k, a := range p {
		n, ok := activityNumber(k)
		out = append(out, OrderedActivity{Key: k, Number: n, HasNumber: ok, Activity: a})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.HasNumber != b.HasNumber {
			return a.HasNumber
		}
		if a.HasNumber && a.Number != b.Number {
			return a.Number < b.Number
		}
		return a.Key < b.Key
	})
	return out
}

type Plan5512 struct {
	CongVan CongVan `json:"congVan"`
	Basics
	MucTieu   Objectives `json:"mucTieu"`
	ThietBi   Text       `json:"thietBi,omitempty"`
	TienTrinh Process    `json:"tienTrinh,omitempty"`
}

func (p *Plan5512) Template() CongVan { return CongVan5512 }
func (p *Plan5512) Info() Basics      { return p.Basics }
func (p *Plan5512) isPlan()           {}

type Activity2345 struct {
	HoatDong  Text `json:"hoatDong,omitempty"`
	YeuCau    Text `json:"yeuCau,omitempty"`
	DieuChinh Text `json:"dieuChinh,omitempty"`
}

func (a *Activity2345) UnmarshalJSON(b []byte) error {
	type plain Activity2345
	return decodeObject(b, (*plain)(a))
}

// Activities2345 keeps the table rows in the order the model sent them.
type Activities2345 []Activity2345

func (l *Activities2345) UnmarshalJSON(b []byte) error {
	switch jsonKind(b) {
	case '[':
		var list []Activity2345
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*l = list
	case '{':
		var one Activity2345
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*l = Activities2345{one}
	default:
		*l = nil
	}
	return nil
}

type Plan2345 struct {
	CongVan CongVan `json:"congVan"`
	Basics
	YeuCauCanDat       Text           `json:"yeuCauCanDat"`
	DoDungDayHoc       Text           `json:"doDungDayHoc"`
	HoatDongDayHoc     Activities2345 `json:"hoatDongDayHoc"`
	DieuChinhSauBaiDay Text           `json:"dieuChinhSauBaiDay,omitempty"`
}

func (p *Plan2345) Template() CongVan { return CongVan2345 }
func (p *Plan2345) Info() Basics      { return p.Basics }
func (p *Plan2345) isPlan()           {}

// UnknownPlan is valid JSON whose template code is missing or not one we
// know. It renders as a header without sections.
type UnknownPlan struct {
	Discriminant string
	Basics
	Raw json.RawMessage
}

func (p *UnknownPlan) Template() CongVan { return CongVan(p.Discriminant) }
func (p *UnknownPlan) Info() Basics      { return p.Basics }
func (p *UnknownPlan) isPlan()           {}

func (p *UnknownPlan) MarshalJSON() ([]byte, error) {
	if len(p.Raw) == 0 {
		return []byte("null"), nil
	}
	return p.Raw, nil
}
