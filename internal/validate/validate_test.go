package validate

import (
	"testing"

	"github.com/brynhild/brynhild/pkg/models"
)

func TestValidateAcceptsWellFormedConversation(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{{ID: "1", Name: "bash"}}},
		{Role: models.RoleToolResult, ToolCallID: "1", Content: "ok"},
		{Role: models.RoleAssistant, Content: "done"},
	}
	if v := Validate(msgs, Collecting); len(v) != 0 {
		t.Errorf("expected no violations, got %+v", v)
	}
}

func TestValidateRejectsConsecutiveUserMessages(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleUser, Content: "a"},
		{Role: models.RoleUser, Content: "b"},
	}
	v := Validate(msgs, Strict)
	if len(v) == 0 {
		t.Fatal("expected violation for consecutive user messages")
	}
}

func TestValidateRejectsUnknownToolCallID(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleToolResult, ToolCallID: "nonexistent", Content: "x"},
	}
	v := Validate(msgs, Strict)
	if len(v) == 0 {
		t.Fatal("expected violation for unreferenced tool_call_id")
	}
}

func TestValidateAllowsThinkingOnlySyntheticID(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleToolResult, ToolCallID: "thinking-only-abc", Content: "x"},
	}
	if v := Validate(msgs, Collecting); len(v) != 0 {
		t.Errorf("expected thinking-only id exempted, got %+v", v)
	}
}

func TestValidateRejectsMultipleSystemMessages(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleSystem, Content: "a"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleSystem, Content: "b"},
	}
	v := Validate(msgs, Collecting)
	found := false
	for _, viol := range v {
		if viol.Message == "message at index 2 not first" || viol.Index == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a violation tied to the second system message, got %+v", v)
	}
}

func TestValidateToolCallResultPairsFindsOrphans(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{{ID: "1", Name: "bash"}, {ID: "2", Name: "bash"}}},
		{Role: models.RoleToolResult, ToolCallID: "1", Content: "ok"},
	}
	counts := ValidateToolCallResultPairs(msgs)
	if counts.Matched != 1 {
		t.Errorf("Matched = %d", counts.Matched)
	}
	if len(counts.OrphanCalls) != 1 || counts.OrphanCalls[0] != "2" {
		t.Errorf("OrphanCalls = %+v", counts.OrphanCalls)
	}
}
