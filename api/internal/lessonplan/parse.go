package lessonplan

import (
	"encoding/json"
	"strings"

	"giaoan/api/internal/apperr"
)

// Parse turns the accumulated model output into a Plan. It fails only when
// the text is blank or not JSON at all; shape mismatches are tolerated and
// show up as missing sections when rendered. The text is decoded exactly
// once, nothing is repaired.
func Parse(full string) (Plan, error) {
	text := strings.TrimSpace(full)
	if text == "" {
		return nil, apperr.ErrEmptyResponse
	}
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, apperr.MalformedJSON(full, err)
	}
	return decodePlan(raw), nil
}

func decodePlan(raw json.RawMessage) Plan {
	if jsonKind(raw) != '{' {
		return &UnknownPlan{Raw: raw}
	}
	var head struct {
		CongVan CongVan `json:"congVan"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return &UnknownPlan{Raw: raw}
	}

	switch head.CongVan {
	case CongVan5512:
		var p Plan5512
		if err := json.Unmarshal(raw, &p); err == nil {
			p.CongVan = CongVan5512
			return &p
		}
	case CongVan2345:
		var p Plan2345
		if err := json.Unmarshal(raw, &p); err == nil {
			p.CongVan = CongVan2345
			return &p
		}
	}

	unknown := &UnknownPlan{Discriminant: string(head.CongVan), Raw: raw}
	_ = json.Unmarshal(raw, &unknown.Basics)
	return unknown
}
