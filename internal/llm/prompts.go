package llm

import (
	"fmt"
	"strings"
)

// draftSystem is the system instruction sent with every draft request.
const draftSystem = "Return ONLY valid JSON with keys: subject, body, sources. No prose."

// EvidenceLine is one piece of evidence shown to the model.
type EvidenceLine struct {
	Title string
	URL   string
}

// DraftPrompt builds the outreach prompt from a company's ICP tags, its
// evidence, and the seller's value proposition.
func DraftPrompt(icpTags []string, evidence []EvidenceLine, valueProp string) string {
	var ev strings.Builder
	for _, e := range evidence {
		title := e.Title
		if r := []rune(title); len(r) > 80 {
			title = string(r[:80])
		}
		fmt.Fprintf(&ev, "- %s :: %s\n", title, e.URL)
	}

	return fmt.Sprintf(`You are a concise B2B SDR assistant. Use ONLY the evidence links provided.
Return JSON ONLY with keys exactly: subject, body, sources. No extra text or markdown.
Constraints:
- subject at most 70 characters
- at most 120 words in body
- 1 paragraph plus 1 short call-to-action line
- cite 1 to 3 of the evidence URLs in sources (array of strings)

ICP_TAGS: %s
VALUE_PROP: %s
EVIDENCE:
%s`, strings.Join(icpTags, ", "), valueProp, ev.String())
}
