package processor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/brynhild/brynhild/internal/skills"
	"github.com/brynhild/brynhild/internal/tools"
	"github.com/brynhild/brynhild/pkg/models"
	"github.com/brynhild/brynhild/pkg/provider"
	"github.com/brynhild/brynhild/pkg/renderer"
)

// scriptedProvider replays one StreamEvent sequence per call, in order,
// looping the last sequence forever once exhausted.
type scriptedProvider struct {
	turns [][]provider.StreamEvent
	calls int
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamEvent, error) {
	idx := s.calls
	if idx >= len(s.turns) {
		idx = len(s.turns) - 1
	}
	s.calls++
	events := s.turns[idx]
	ch := make(chan provider.StreamEvent, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "echoes its input" }
func (echoTool) InputSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"text": map[string]any{"type": "string"}},
		"required":   []any{"text"},
	}
}
func (echoTool) RequiresPermission() bool { return false }
func (echoTool) Execute(ctx context.Context, input json.RawMessage) (models.ToolResult, error) {
	var in struct {
		Text string `json:"text"`
	}
	json.Unmarshal(input, &in)
	return models.Ok(in.Text), nil
}

func newRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	if err := reg.Register(echoTool{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return reg
}

func TestRunTurnNoToolCallsCompletesImmediately(t *testing.T) {
	p := &scriptedProvider{turns: [][]provider.StreamEvent{
		{
			{Type: provider.EventStreamStart},
			{Type: provider.EventTextDelta, Delta: "hello "},
			{Type: provider.EventTextDelta, Delta: "world"},
			{Type: provider.EventTextComplete},
		},
	}}
	proc := New(p, newRegistry(t), Config{})
	sess := &models.Session{ID: "abc12345"}

	if err := proc.RunTurn(context.Background(), sess, nil, "hi", "m", "scripted", renderer.NoopCallbacks{}); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	if len(sess.Messages) != 2 {
		t.Fatalf("expected 2 messages (user + assistant), got %d: %+v", len(sess.Messages), sess.Messages)
	}
	if sess.Messages[1].Content != "hello world" {
		t.Errorf("assistant content = %q", sess.Messages[1].Content)
	}
}

func TestRunTurnDispatchesToolAndContinues(t *testing.T) {
	toolInput, _ := json.Marshal(map[string]any{"text": "ping"})
	p := &scriptedProvider{turns: [][]provider.StreamEvent{
		{
			{Type: provider.EventStreamStart},
			{Type: provider.EventTextDelta, Delta: "calling tool"},
			{Type: provider.EventToolUse, ToolUse: &models.ToolCall{ID: "1", Name: "echo", Input: toolInput}},
		},
		{
			{Type: provider.EventStreamStart},
			{Type: provider.EventTextDelta, Delta: "done"},
		},
	}}
	proc := New(p, newRegistry(t), Config{})
	sess := &models.Session{ID: "abc12345"}

	if err := proc.RunTurn(context.Background(), sess, nil, "hi", "m", "scripted", renderer.NoopCallbacks{}); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	var roles []models.Role
	for _, m := range sess.Messages {
		roles = append(roles, m.Role)
	}
	// user, assistant(tool_calls), tool_result, assistant(final)
	want := []models.Role{models.RoleUser, models.RoleAssistant, models.RoleToolResult, models.RoleAssistant}
	if len(roles) != len(want) {
		t.Fatalf("roles = %+v, want %+v", roles, want)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Errorf("role[%d] = %q, want %q", i, roles[i], want[i])
		}
	}
	if sess.Messages[2].ToolCallID != "1" || sess.Messages[2].Content != "ping" {
		t.Errorf("tool result message = %+v", sess.Messages[2])
	}
}

func TestRunTurnDeniesUnpermittedToolOnRejectedApproval(t *testing.T) {
	p := &scriptedProvider{turns: [][]provider.StreamEvent{
		{
			{Type: provider.EventToolUse, ToolUse: &models.ToolCall{ID: "1", Name: "needs-perm", Input: json.RawMessage(`{}`)}},
		},
		{{Type: provider.EventTextDelta, Delta: "ok"}},
	}}
	reg := tools.NewRegistry()
	reg.Register(permTool{})
	proc := New(p, reg, Config{AutoApprove: false})
	sess := &models.Session{ID: "abc12345"}

	cb := renderer.NoopCallbacks{Approve: false}
	if err := proc.RunTurn(context.Background(), sess, nil, "hi", "m", "scripted", cb); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	var found bool
	for _, m := range sess.Messages {
		if m.Role == models.RoleToolResult && m.Content == "Permission denied" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a Permission denied tool_result, got %+v", sess.Messages)
	}
}

type permTool struct{}

func (permTool) Name() string                 { return "needs-perm" }
func (permTool) Description() string          { return "" }
func (permTool) InputSchema() map[string]any  { return map[string]any{"type": "object"} }
func (permTool) RequiresPermission() bool     { return true }
func (permTool) Execute(ctx context.Context, input json.RawMessage) (models.ToolResult, error) {
	return models.Ok("should not run"), nil
}

func TestRunTurnFinishToolStopsLoop(t *testing.T) {
	p := &scriptedProvider{turns: [][]provider.StreamEvent{
		{
			{Type: provider.EventTextDelta, Delta: "wrapping up"},
			{Type: provider.EventToolUse, ToolUse: &models.ToolCall{ID: "1", Name: "finish", Input: json.RawMessage(`{}`)}},
		},
	}}
	reg := tools.NewRegistry()
	reg.Register(finishTool{})
	proc := New(p, reg, Config{})
	sess := &models.Session{ID: "abc12345"}

	if err := proc.RunTurn(context.Background(), sess, nil, "hi", "m", "scripted", renderer.NoopCallbacks{}); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if p.calls != 1 {
		t.Errorf("expected exactly one provider call when finish fires, got %d", p.calls)
	}
}

type finishTool struct{}

func (finishTool) Name() string                { return "finish" }
func (finishTool) Description() string         { return "" }
func (finishTool) InputSchema() map[string]any { return map[string]any{"type": "object"} }
func (finishTool) RequiresPermission() bool    { return false }
func (finishTool) Execute(ctx context.Context, input json.RawMessage) (models.ToolResult, error) {
	return models.Ok("done"), nil
}

func TestPreflightRejectsUnknownSkillInvocation(t *testing.T) {
	p := &scriptedProvider{turns: [][]provider.StreamEvent{{{Type: provider.EventTextDelta, Delta: "x"}}}}
	proc := New(p, newRegistry(t), Config{})
	proc.Skills = skills.NewRegistry(nil)
	sess := &models.Session{ID: "abc12345"}

	err := proc.RunTurn(context.Background(), sess, nil, "/skill nonexistent do something", "m", "scripted", renderer.NoopCallbacks{})
	if err == nil {
		t.Fatal("expected an error for unknown skill invocation")
	}
	var unk *UnknownSkillError
	if !errors.As(err, &unk) {
		t.Errorf("expected UnknownSkillError, got %v (%T)", err, err)
	}
}
