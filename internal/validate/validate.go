// Package validate checks a message list's structural integrity before
// it is sent to a provider: role validity, content/tool_calls presence,
// message-ordering rules, and tool_call_id referencing.
package validate

import (
	"fmt"
	"strings"

	"github.com/brynhild/brynhild/pkg/models"
)

// Mode controls how violations are reported.
type Mode int

const (
	// Strict returns on the first violation found.
	Strict Mode = iota
	// Collecting gathers every violation before returning.
	Collecting
)

// Violation is one structural problem found in a message list.
type Violation struct {
	Index   int
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("message %d: %s", v.Index, v.Message)
}

// thinkingOnlyPrefix marks synthetic tool_call_ids minted for
// thinking-only turns that never produced a real tool call, so they are
// exempt from the must-reference-a-call rule.
const thinkingOnlyPrefix = "thinking-only-"

// Validate checks msgs per mode, returning every violation found
// (length 1 in Strict mode, as soon as one exists).
func Validate(msgs []models.Message, mode Mode) []Violation {
	var violations []Violation
	report := func(i int, format string, args ...any) bool {
		violations = append(violations, Violation{Index: i, Message: fmt.Sprintf(format, args...)})
		return mode == Strict
	}

	systemCount := 0
	for i, m := range msgs {
		if !validRole(m.Role) {
			if report(i, "invalid role %q", m.Role) {
				return violations
			}
			continue
		}

		if m.Role == models.RoleSystem {
			systemCount++
			if i != 0 {
				if report(i, "system message must be first") {
					return violations
				}
			}
		}

		if !m.HasContent() && !m.HasToolCalls() {
			if report(i, "message has neither content nor tool_calls") {
				return violations
			}
		}

		if m.Role == models.RoleToolResult || m.Role == models.RoleTool {
			if m.ToolCallID == "" {
				if report(i, "tool_result message missing tool_call_id") {
					return violations
				}
			} else if !strings.HasPrefix(m.ToolCallID, thinkingOnlyPrefix) {
				if !referencesPriorCall(msgs[:i], m.ToolCallID) {
					if report(i, "tool_call_id %q does not reference a prior tool call", m.ToolCallID) {
						return violations
					}
				}
			}
		}

		if i > 0 {
			prev := msgs[i-1]
			if prev.Role == models.RoleUser && m.Role == models.RoleUser {
				if report(i, "consecutive user messages without an intervening assistant turn") {
					return violations
				}
			}
			if prev.Role == models.RoleAssistant && m.Role == models.RoleAssistant {
				if !prev.HasToolCalls() {
					if report(i, "consecutive assistant messages without an intervening tool result") {
						return violations
					}
				}
			}
		}
	}

	if systemCount > 1 {
		violations = append(violations, Violation{Index: 0, Message: fmt.Sprintf("found %d system messages, expected at most 1", systemCount)})
	}

	return violations
}

func validRole(r models.Role) bool {
	switch r {
	case models.RoleSystem, models.RoleUser, models.RoleAssistant, models.RoleTool, models.RoleToolResult:
		return true
	default:
		return false
	}
}

func referencesPriorCall(prior []models.Message, id string) bool {
	for _, m := range prior {
		for _, tc := range m.ToolCalls {
			if tc.ID == id {
				return true
			}
		}
	}
	return false
}

// PairCounts summarizes tool_call/tool_result matching for a message
// list.
type PairCounts struct {
	Matched     int
	OrphanCalls []string
	OrphanResults []string
}

// ValidateToolCallResultPairs reports every tool_call id lacking a
// matching tool_result, and vice versa.
func ValidateToolCallResultPairs(msgs []models.Message) PairCounts {
	calls := map[string]bool{}
	results := map[string]bool{}
	for _, m := range msgs {
		for _, tc := range m.ToolCalls {
			calls[tc.ID] = true
		}
		if (m.Role == models.RoleToolResult || m.Role == models.RoleTool) && m.ToolCallID != "" {
			results[m.ToolCallID] = true
		}
	}

	var counts PairCounts
	for id := range calls {
		if results[id] {
			counts.Matched++
		} else {
			counts.OrphanCalls = append(counts.OrphanCalls, id)
		}
	}
	for id := range results {
		if !calls[id] && !strings.HasPrefix(id, thinkingOnlyPrefix) {
			counts.OrphanResults = append(counts.OrphanResults, id)
		}
	}
	return counts
}
