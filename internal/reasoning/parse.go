package reasoning

import (
	"encoding/json"
	"strings"

	"github.com/ascendhq/ascend/internal/reasoning/contract"
)

type parseMode string

const (
	parseModeJSON      parseMode = "json_object"
	parseModeExtracted parseMode = "json_extracted"
	parseModeFallback  parseMode = "fallback"
)

// parseClassification never fails: when the classifier output is unusable the
// fallback verdict routes the turn to action mode, where the full responder
// is the source of truth.
func parseClassification(raw string) (*contract.Classification, parseMode) {
	normalized := cleanModelJSON(raw)

	if c, ok := decodeClassification(normalized); ok {
		return c, parseModeJSON
	}
	if extracted := extractFirstBalancedJSON(normalized, '{', '}'); extracted != "" {
		if c, ok := decodeClassification(extracted); ok {
			return c, parseModeExtracted
		}
	}

	return &contract.Classification{
		Intent:     contract.IntentAction,
		Confidence: 0,
		Reasoning:  "classifier output unparseable",
	}, parseModeFallback
}

func decodeClassification(raw string) (*contract.Classification, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	var c contract.Classification
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, false
	}

	switch strings.ToUpper(strings.TrimSpace(string(c.Intent))) {
	case "CHAT":
		c.Intent = contract.IntentChat
	case "QUESTION":
		c.Intent = contract.IntentQuestion
	case "QUERY":
		c.Intent = contract.IntentQuery
	case "ACTION":
		c.Intent = contract.IntentAction
	case "CLARIFY":
		c.Intent = contract.IntentClarify
	default:
		return nil, false
	}

	if c.Confidence < 0 {
		c.Confidence = 0
	}
	if c.Confidence > 1 {
		c.Confidence = 1
	}
	return &c, true
}

// parseAssistantTurn degrades gracefully: malformed structured output becomes
// a plain-text reply with zero actions rather than a failed turn.
func parseAssistantTurn(raw string) (*contract.AssistantTurn, parseMode) {
	normalized := cleanModelJSON(raw)

	if turn, ok := decodeAssistantTurn(normalized); ok {
		return turn, parseModeJSON
	}
	if extracted := extractFirstBalancedJSON(normalized, '{', '}'); extracted != "" {
		if turn, ok := decodeAssistantTurn(extracted); ok {
			return turn, parseModeExtracted
		}
	}

	message := strings.TrimSpace(normalized)
	if message == "" {
		message = "I couldn't put together a proper answer. Could you rephrase that?"
	}
	return &contract.AssistantTurn{Message: message}, parseModeFallback
}

func decodeAssistantTurn(raw string) (*contract.AssistantTurn, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	var turn contract.AssistantTurn
	if err := json.Unmarshal([]byte(raw), &turn); err != nil {
		return nil, false
	}
	if strings.TrimSpace(turn.Message) == "" && len(turn.Actions) == 0 {
		return nil, false
	}

	kept := turn.Actions[:0]
	for _, a := range turn.Actions {
		if strings.TrimSpace(a.Type) == "" {
			continue
		}
		kept = append(kept, a)
	}
	turn.Actions = kept
	return &turn, true
}

// parseRoadmap has no usable fallback shape: a roadmap that cannot be decoded
// fails the create, and the caller reports one failed result for the goal.
func parseRoadmap(raw string) (*contract.GeneratedGoal, bool) {
	normalized := cleanModelJSON(raw)

	if g, ok := decodeRoadmap(normalized); ok {
		return g, true
	}
	if extracted := extractFirstBalancedJSON(normalized, '{', '}'); extracted != "" {
		if g, ok := decodeRoadmap(extracted); ok {
			return g, true
		}
	}
	return nil, false
}

func decodeRoadmap(raw string) (*contract.GeneratedGoal, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	var g contract.GeneratedGoal
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return nil, false
	}
	if strings.TrimSpace(g.Title) == "" || len(g.Phases) == 0 {
		return nil, false
	}
	return &g, true
}

func cleanModelJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractFirstBalancedJSON returns the first balanced {...} or [...] block,
// tracking string literals and escapes so braces inside strings don't count.
func extractFirstBalancedJSON(input string, open, close byte) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return strings.TrimSpace(input[start : i+1])
			}
		}
	}
	return ""
}
