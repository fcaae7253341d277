package ai

import (
	"encoding/json"
	"strings"
)

// DefaultExplanation is used when a structured response omits the explanation field.
const DefaultExplanation = "No explanation provided"

const explanationPreviewLimit = 500

var positiveKeywords = []string{"approved", "yes", "correct", "valid", "good", "proper", "acceptable"}

var negativeKeywords = []string{"rejected", "no", "incorrect", "invalid", "poor", "improper", "unacceptable"}

// Verdict is the structured outcome extracted from a raw model response.
type Verdict struct {
	Confidence  float64
	IsApproved  bool
	Explanation string
	Parsed      map[string]interface{}
	Fallback    bool
}

// ParseResponse turns raw model text into a Verdict. It attempts a structured
// JSON decode first and degrades to keyword heuristics when that fails, so a
// verdict is always produced. Parsing degradation is never itself a failure.
func ParseResponse(raw string) Verdict {
	trimmed := strings.TrimSpace(raw)

	var candidate string
	if strings.HasPrefix(trimmed, "{") {
		candidate = trimmed
	} else {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start == -1 || end <= start {
			return parseUnstructured(raw)
		}
		candidate = raw[start : end+1]
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &decoded); err != nil {
		return parseUnstructured(raw)
	}

	verdict := Verdict{
		Explanation: DefaultExplanation,
		Parsed:      decoded,
	}

	if confidence, ok := numberField(decoded, "confidence"); ok {
		verdict.Confidence = confidence
	}
	if approved, ok := decoded["is_approved"].(bool); ok {
		verdict.IsApproved = approved
	}
	if explanation, ok := decoded["explanation"].(string); ok && explanation != "" {
		verdict.Explanation = explanation
	}

	return verdict
}

// parseUnstructured scores the response against fixed positive and negative
// lexicons. Ambiguous responses, including ones with no lexicon hits at all,
// default to rejection.
func parseUnstructured(raw string) Verdict {
	lower := strings.ToLower(raw)

	positive := 0
	for _, word := range positiveKeywords {
		if strings.Contains(lower, word) {
			positive++
		}
	}

	negative := 0
	for _, word := range negativeKeywords {
		if strings.Contains(lower, word) {
			negative++
		}
	}

	verdict := Verdict{
		Explanation: truncate(raw, explanationPreviewLimit),
		Parsed:      map[string]interface{}{"fallback_parsing": true},
		Fallback:    true,
	}

	switch {
	case positive > negative:
		verdict.IsApproved = true
		verdict.Confidence = 0.7
	case negative > positive:
		verdict.IsApproved = false
		verdict.Confidence = 0.6
	default:
		verdict.IsApproved = false
		verdict.Confidence = 0.4
	}

	return verdict
}

func numberField(data map[string]interface{}, key string) (float64, bool) {
	switch value := data[key].(type) {
	case float64:
		return value, true
	case json.Number:
		parsed, err := value.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func truncate(input string, limit int) string {
	if len(input) <= limit {
		return input
	}
	return input[:limit]
}
