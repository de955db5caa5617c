package drafting

import (
	"encoding/json"
	"strings"
)

// jsonObjects returns every balanced top-level {...} span in text, in order.
// Braces inside JSON strings are skipped.
func jsonObjects(text string) []string {
	var out []string
	depth, start := 0, -1
	inString, escaped := false, false

	for i := 0; i < len(text); i++ {
		c := text[i]
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
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				out = append(out, text[start:i+1])
			}
		}
	}
	return out
}

// lastJSONObject returns the last object in text that decodes as JSON, or ""
// when there is none.
func lastJSONObject(text string) string {
	objs := jsonObjects(strings.TrimSpace(text))
	for i := len(objs) - 1; i >= 0; i-- {
		if json.Valid([]byte(objs[i])) {
			return objs[i]
		}
	}
	return ""
}

// parseEmail extracts and checks the email in a model response. Missing
// sources are filled from evidenceURLs.
func parseEmail(text string, evidenceURLs []string) (*Email, error) {
	raw := lastJSONObject(text)
	if raw == "" {
		return nil, &ValidationError{Errors: []FieldError{{Field: "(root)", Message: "no JSON object in response"}}}
	}
	if err := checkPayload(raw); err != nil {
		return nil, err
	}

	var e Email
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, err
	}
	e.Subject = strings.TrimSpace(e.Subject)
	e.Body = strings.TrimSpace(e.Body)
	if len(e.Sources) == 0 {
		e.Sources = firstN(evidenceURLs, MaxSources)
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// Fallback is the draft used when generation fails.
func Fallback(evidenceURLs []string) *Email {
	return &Email{
		Subject: "[fallback] Quick idea",
		Body:    "We saw relevant updates and can help. Open to a 15-min chat?",
		Sources: firstN(evidenceURLs, 2),
	}
}

func firstN(s []string, n int) []string {
	out := make([]string, 0, n)
	for _, v := range s {
		if len(out) == n {
			break
		}
		out = append(out, v)
	}
	return out
}
