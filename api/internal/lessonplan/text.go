package lessonplan

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Text is a free-form markdown field. Models do not always answer with a
// JSON string, so scalars become their literal text, arrays become one line
// per element and objects one line per value, in document order.
type Text string

func (t Text) String() string { return string(t) }

// Empty reports whether the field has nothing to render.
func (t Text) Empty() bool { return strings.TrimSpace(string(t)) == "" }

func (t *Text) UnmarshalJSON(b []byte) error {
	s, err := flattenJSON(b)
	if err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

func flattenJSON(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil {
			return "", err
		}
		lines := make([]string, 0, len(items))
		for _, item := range items {
			s, err := flattenJSON(item)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(s) != "" {
				lines = append(lines, s)
			}
		}
		return strings.Join(lines, "\n"), nil
	case '{':
		values, err := objectValues(b)
		if err != nil {
			return "", err
		}
		lines := make([]string, 0, len(values))
		for _, v := range values {
			s, err := flattenJSON(v)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(s) != "" {
				lines = append(lines, s)
			}
		}
		return strings.Join(lines, "\n"), nil
	default:
		return string(b), nil
	}
}

// objectValues returns the member values of a JSON object in document order.
func objectValues(b []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []json.RawMessage
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func jsonKind(b []byte) byte {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

// decodeObject decodes b into v only when b is a JSON object; any other
// kind leaves v untouched.
func decodeObject(b []byte, v any) error {
	if jsonKind(b) != '{' {
		return nil
	}
	return json.Unmarshal(b, v)
}
