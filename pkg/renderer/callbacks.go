// Package renderer defines the UI-facing callback interface the
// conversation processor drives while it streams a turn. Concrete
// implementations (a TUI, a plain terminal writer, a JSON-lines emitter)
// live outside the core and never influence processor semantics.
package renderer

import (
	"github.com/brynhild/brynhild/pkg/models"
	"github.com/brynhild/brynhild/pkg/provider"
)

// Callbacks receives every UI-relevant event the processor emits while
// running one turn, and answers the questions the processor must ask
// the UI mid-turn (permission, cancellation).
type Callbacks interface {
	OnStreamStart()
	OnThinkingDelta(delta string)
	OnThinkingComplete(full string)
	OnTextDelta(delta string)
	OnTextComplete(full string)
	OnToolCall(tc models.ToolCall)
	OnToolResult(tc models.ToolCall, result models.ToolResult)
	OnUsageUpdate(usage provider.Usage)

	// RequestToolPermission asks the UI to approve a tool call that
	// declared requires_permission. Returns false to deny.
	RequestToolPermission(tc models.ToolCall) bool

	// IsCancelled is polled between stream events and between tool calls.
	IsCancelled() bool
}

// NoopCallbacks implements Callbacks with no-ops; RequestToolPermission
// answers with Approve (false unless set). Useful for tests and headless
// (--json) CLI invocations that don't need interactive permission prompts.
type NoopCallbacks struct {
	Approve   bool
	Cancelled func() bool
}

func (n NoopCallbacks) OnStreamStart()                                     {}
func (n NoopCallbacks) OnThinkingDelta(string)                             {}
func (n NoopCallbacks) OnThinkingComplete(string)                          {}
func (n NoopCallbacks) OnTextDelta(string)                                 {}
func (n NoopCallbacks) OnTextComplete(string)                              {}
func (n NoopCallbacks) OnToolCall(models.ToolCall)                         {}
func (n NoopCallbacks) OnToolResult(models.ToolCall, models.ToolResult)    {}
func (n NoopCallbacks) OnUsageUpdate(provider.Usage)                       {}
func (n NoopCallbacks) RequestToolPermission(models.ToolCall) bool         { return n.Approve }
func (n NoopCallbacks) IsCancelled() bool {
	if n.Cancelled == nil {
		return false
	}
	return n.Cancelled()
}
