package hooks

import (
	"context"
	"testing"
	"time"
)

func TestDispatchCommandHookInjects(t *testing.T) {
	m := NewManager(nil)
	m.Register(&Definition{
		Name:    "greet",
		Event:   EventPreMessage,
		Kind:    KindCommand,
		Command: `echo '{"inject":"hello from hook"}'`,
	})

	decision, err := m.Dispatch(context.Background(), &Context{Event: EventPreMessage, SessionID: "s1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(decision.Injections) != 1 || decision.Injections[0] != "hello from hook" {
		t.Errorf("unexpected injections: %+v", decision.Injections)
	}
}

func TestDispatchBlockingHookStopsAtFirstBlock(t *testing.T) {
	m := NewManager(nil)
	m.Register(&Definition{
		Name:    "blocker",
		Event:   EventPreToolUse,
		Kind:    KindCommand,
		Command: `echo '{"block":true,"reason":"no way"}'`,
	})

	decision, err := m.Dispatch(context.Background(), &Context{Event: EventPreToolUse, SessionID: "s1", ToolName: "bash"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !decision.Block || decision.Reason != "no way" {
		t.Errorf("expected block with reason, got %+v", decision)
	}
}

func TestNonBlockCapableEventIgnoresBlockField(t *testing.T) {
	m := NewManager(nil)
	m.Register(&Definition{
		Name:    "noop",
		Event:   EventPostToolUse,
		Kind:    KindCommand,
		Command: `echo '{"block":true,"reason":"ignored"}'`,
	})

	decision, err := m.Dispatch(context.Background(), &Context{Event: EventPostToolUse, SessionID: "s1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if decision.Block {
		t.Errorf("post_tool_use cannot block, got Block=true")
	}
}

func TestTimeoutDefaultsToContinue(t *testing.T) {
	m := NewManager(nil)
	m.Register(&Definition{
		Name:           "slow",
		Event:          EventPreToolUse,
		Kind:           KindCommand,
		Command:        "sleep 5",
		TimeoutSeconds: 1,
	})

	start := time.Now()
	decision, err := m.Dispatch(context.Background(), &Context{Event: EventPreToolUse, SessionID: "s1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if decision.Block {
		t.Errorf("expected timeout to default to continue, not block")
	}
	if time.Since(start) > 4*time.Second {
		t.Errorf("dispatch took too long, timeout not enforced")
	}
}

func TestMatcherFiltersbyToolName(t *testing.T) {
	m := NewManager(nil)
	m.Register(&Definition{
		Name:    "bash-only",
		Event:   EventPreToolUse,
		Kind:    KindCommand,
		Matcher: "^bash$",
		Command: `echo '{"inject":"bash matched"}'`,
	})

	decision, err := m.Dispatch(context.Background(), &Context{Event: EventPreToolUse, SessionID: "s1", ToolName: "file_read"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(decision.Injections) != 0 {
		t.Errorf("expected no match for file_read, got %+v", decision.Injections)
	}
}
