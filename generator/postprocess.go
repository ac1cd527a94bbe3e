package generator

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ParseStructuredResponse pulls {description, indicators} out of raw model
// output. It never fails: when no usable JSON object is found the whole
// trimmed text becomes the description.
func ParseStructuredResponse(raw string) StructuredResponse {
	fallback := StructuredResponse{Description: strings.TrimSpace(raw), Indicators: []string{}}

	obj, ok := firstBalancedObject(raw)
	if !ok || !gjson.Valid(obj) {
		return fallback
	}
	parsed := gjson.Parse(obj)
	desc := parsed.Get("description")
	if desc.Type != gjson.String {
		return fallback
	}

	out := StructuredResponse{Description: desc.String(), Indicators: []string{}}
	if ind := parsed.Get("indicators"); ind.IsArray() {
		for _, item := range ind.Array() {
			if item.Type == gjson.Null {
				continue
			}
			out.Indicators = append(out.Indicators, item.String())
		}
	}
	return out
}

// firstBalancedObject returns the first {...} span whose braces balance,
// ignoring braces inside JSON strings.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
