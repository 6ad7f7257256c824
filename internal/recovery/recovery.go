// Package recovery scans an assistant's free-form thinking text for a
// JSON tool-call payload when the provider failed to emit a structured
// tool_use block, recovering it with a confidence score rather than
// discarding the turn.
package recovery

import (
	"encoding/json"
	"strings"
)

// ToolSchema describes one candidate tool the recovered JSON might be
// calling, for scoring purposes.
type ToolSchema struct {
	Name     string
	Required []string
	Props    []string
}

// Result is one recovered tool-call candidate.
type Result struct {
	ToolName     string
	Input        map[string]any
	Score        int
	RecoveryType string
	Start, End   int
	Candidates   int
}

const (
	typeTrailingJSON        = "trailing_json"
	typeJSONWithTrailingText = "json_with_trailing_text"
	typeFallbackJSON         = "fallback_json"
)

// Recover scans text end-to-start for balanced {...} candidates, scores
// each against schemas, and returns the highest-scoring one. ok is false
// if no JSON object could be found at all.
func Recover(text string, schemas []ToolSchema) (*Result, bool) {
	candidates := findCandidates(text)
	if len(candidates) == 0 {
		return nil, false
	}

	var best *Result
	for _, c := range candidates {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(text[c.start:c.end]), &parsed); err != nil {
			continue
		}
		for _, schema := range schemas {
			score := schemaScore(parsed, schema) + contextScore(text, c.end, schema)
			if best == nil || score > best.Score {
				best = &Result{
					ToolName:     schema.Name,
					Input:        parsed,
					Score:        score,
					RecoveryType: recoveryType(text, c.start, c.end),
					Start:        c.start,
					End:          c.end,
					Candidates:   len(candidates),
				}
			}
		}
		if len(schemas) == 0 {
			score := 0
			if best == nil || score > best.Score {
				best = &Result{
					Input:        parsed,
					Score:        score,
					RecoveryType: typeFallbackJSON,
					Start:        c.start,
					End:          c.end,
					Candidates:   len(candidates),
				}
			}
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

type span struct{ start, end int }

// findCandidates enumerates balanced {...} substrings, scanning from the
// end of text toward the start so the most recently emitted candidate is
// considered first in case of ties.
func findCandidates(text string) []span {
	var spans []span
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] != '{' {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for j := i; j < len(text); j++ {
			ch := text[j]
			if inString {
				if escaped {
					escaped = false
				} else if ch == '\\' {
					escaped = true
				} else if ch == '"' {
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					spans = append(spans, span{start: i, end: j + 1})
					goto done
				}
			}
		}
	done:
	}
	return spans
}

// schemaScore rewards candidates whose keys are a subset of the schema's
// declared properties, with a bonus when every required key is present.
func schemaScore(parsed map[string]any, schema ToolSchema) int {
	score := 0
	propSet := map[string]bool{}
	for _, p := range schema.Props {
		propSet[p] = true
	}
	for k := range parsed {
		if propSet[k] {
			score++
		}
	}
	allRequired := true
	for _, req := range schema.Required {
		if _, ok := parsed[req]; !ok {
			allRequired = false
			break
		}
	}
	if allRequired && len(schema.Required) > 0 {
		score += 10
	}
	return score
}

// contextScore rewards a candidate whose tool name (or a plausible
// variant) appears near the JSON, scanning the last 500 characters
// before candidateEnd.
func contextScore(text string, candidateEnd int, schema ToolSchema) int {
	if schema.Name == "" {
		return 0
	}
	windowStart := candidateEnd - 500
	if windowStart < 0 {
		windowStart = 0
	}
	window := strings.ToLower(text[windowStart:candidateEnd])
	name := strings.ToLower(schema.Name)
	score := 0
	if strings.Contains(window, name) || strings.Contains(window, strings.ReplaceAll(name, "_", " ")) {
		score++
	}
	return score
}

func recoveryType(text string, start, end int) string {
	trailing := strings.TrimSpace(text[end:])
	if trailing == "" {
		return typeTrailingJSON
	}
	return typeJSONWithTrailingText
}
