package convlog

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestLogger(t *testing.T) *Logger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	l, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestEventNumbersAreMonotonic(t *testing.T) {
	l := openTestLogger(t)
	if err := l.LogSessionStart("s1"); err != nil {
		t.Fatalf("LogSessionStart: %v", err)
	}
	if err := l.LogUserMessage("hi"); err != nil {
		t.Fatalf("LogUserMessage: %v", err)
	}
	if err := l.LogAssistantMessage("hello"); err != nil {
		t.Fatalf("LogAssistantMessage: %v", err)
	}
	if l.eventNumber != 3 {
		t.Errorf("eventNumber = %d, want 3", l.eventNumber)
	}
}

func TestContextResetReturnsVersionToOne(t *testing.T) {
	l := openTestLogger(t)
	l.LogContextInit("base")
	l.LogContextInjection(SourceRules, LocationSystemPrompend, "rule", "", "", "")
	if l.ContextVersion() != 2 {
		t.Fatalf("expected version 2 before reset, got %d", l.ContextVersion())
	}
	l.LogContextReset("new base", "manual")
	if l.ContextVersion() != 1 {
		t.Errorf("ContextVersion after reset = %d, want 1", l.ContextVersion())
	}
}

func TestRoundTripReadAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	l, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	l.LogSessionStart("s1")
	l.LogContextInit("base prompt")
	l.LogContextInjection(SourceSkillMetadata, LocationSystemAppend, "skills block", "", "", "")
	l.LogUserMessage("hello")
	l.LogAssistantMessage("hi there")
	l.LogSessionEnd("s1")
	l.Close()

	r, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if ok, errs := r.Validate(); !ok {
		t.Fatalf("Validate() = false, errs=%v", errs)
	}

	ctx, err := r.GetContextAtVersion(2)
	if err != nil {
		t.Fatalf("GetContextAtVersion: %v", err)
	}
	want := "base promptskills block"
	if ctx.SystemPrompt != want {
		t.Errorf("SystemPrompt = %q, want %q", ctx.SystemPrompt, want)
	}

	info := r.GetSessionInfo()
	if !info.Started || !info.Ended || info.SessionID != "s1" {
		t.Errorf("GetSessionInfo = %+v, want fully bookended s1", info)
	}
}

func TestGetLLMViewAtTurn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	l, _ := Open(path, Options{})
	l.LogContextInit("system prompt")
	l.LogUserMessage("turn one")
	l.LogAssistantMessage("reply one")
	l.LogUserMessage("turn two")
	l.LogAssistantMessage("reply two")
	l.Close()

	r, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	view, err := r.GetLLMViewAtTurn(1)
	if err != nil {
		t.Fatalf("GetLLMViewAtTurn(1): %v", err)
	}
	if len(view.Messages) != 1 {
		t.Fatalf("expected 1 message at turn 1, got %d", len(view.Messages))
	}
	if view.Messages[0].Content != "turn one" {
		t.Errorf("Messages[0] = %+v", view.Messages[0])
	}

	if _, err := r.GetLLMViewAtTurn(5); err == nil {
		t.Errorf("expected error for out-of-range turn")
	}
}

func TestMalformedLinesAreSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	l, _ := Open(path, Options{})
	l.LogSessionStart("s1")
	l.Close()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString("not json at all\n"); err != nil {
		t.Fatalf("append garbage: %v", err)
	}
	f.Close()

	r, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(r.GetEvents()) != 1 {
		t.Errorf("expected malformed line to be skipped, got %d events", len(r.GetEvents()))
	}
}
