package engine

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/diagenlab/diagen/internal/model"
)

// summaryPreviewLen bounds the fallback summary so raw model output does not
// flood logs and critique artifacts.
const summaryPreviewLen = 200

// noChangesSentinel is the literal some critics emit instead of leaving the
// revised description empty.
const noChangesSentinel = "No changes needed"

// criticPayload is the structured form a well-behaved critique response
// takes. No fields beyond these two are ever read.
type criticPayload struct {
	CriticSuggestions  string `json:"critic_suggestions"`
	RevisedDescription string `json:"revised_description"`
}

// ParseCritique turns raw critique text into a verdict. It is deliberately
// fail-open: any input, however malformed, yields a usable verdict so one
// bad model response cannot abort a multi-minute run.
func ParseCritique(raw string) model.CritiqueVerdict {
	cleaned := stripCodeFence(strings.TrimSpace(raw))

	var payload criticPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err == nil {
		if strings.EqualFold(strings.TrimSpace(payload.CriticSuggestions), "APPROVED") {
			return model.CritiqueVerdict{Approved: true, Summary: payload.CriticSuggestions}
		}
		revised := payload.RevisedDescription
		if revised == noChangesSentinel {
			revised = ""
		}
		return model.CritiqueVerdict{
			Summary:            payload.CriticSuggestions,
			RevisedDescription: revised,
		}
	}

	// Not valid JSON: degrade to text heuristics.
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(raw)), "APPROVED") {
		return model.CritiqueVerdict{Approved: true, Summary: "All dimensions passed"}
	}
	return model.CritiqueVerdict{
		Summary:            truncate(raw, summaryPreviewLen),
		RevisedDescription: raw,
	}
}

// stripCodeFence removes a single leading/trailing markdown code fence pair
// if present. Absent fences are left alone.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := s[3:]
	// Drop an optional language tag on the opening fence line.
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		first := strings.TrimSpace(body[:i])
		if first == "" || isFenceTag(first) {
			body = body[i+1:]
		}
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// truncate shortens s to at most n runes (Unicode-safe).
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
