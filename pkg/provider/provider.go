// Package provider defines the narrow streaming interface the
// conversation processor consumes, and ships one concrete implementation.
// Wire-protocol details belong entirely inside an implementation; the
// processor only ever sees StreamEvent values.
package provider

import (
	"context"

	"github.com/brynhild/brynhild/pkg/models"
)

// StreamEventType names one kind of event a provider emits while
// streaming a completion.
type StreamEventType string

const (
	EventStreamStart     StreamEventType = "stream_start"
	EventThinkingDelta   StreamEventType = "thinking_delta"
	EventThinkingComplete StreamEventType = "thinking_complete"
	EventTextDelta       StreamEventType = "text_delta"
	EventTextComplete    StreamEventType = "text_complete"
	EventToolUse         StreamEventType = "tool_use"
	EventContentStop     StreamEventType = "content_stop"
	EventMessageStop     StreamEventType = "message_stop"
	EventUsage           StreamEventType = "usage"
)

// Usage reports token accounting for a completion.
type Usage struct {
	InputTokens     int
	OutputTokens    int
	ReasoningTokens int
	CostUSD         float64
}

// StreamEvent is one event in a provider's response stream.
type StreamEvent struct {
	Type     StreamEventType
	Delta    string
	ToolUse  *models.ToolCall
	Usage    *Usage
	Err      error
}

// CompletionRequest is everything a provider needs to produce one
// completion.
type CompletionRequest struct {
	Model     string
	System    string
	Messages  []models.Message
	Tools     []ToolSchema
	MaxTokens int
}

// ToolSchema is the provider-agnostic shape of one tool's declaration,
// built by the tool registry for whichever wire format a provider wants.
type ToolSchema struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// LLMProvider is the narrow interface every concrete provider adapter
// implements. Providers own their own wire protocol entirely; the core
// never constructs provider-specific request/response types itself.
type LLMProvider interface {
	// Name identifies the provider (e.g. "anthropic").
	Name() string
	// Stream opens a streaming completion, returning a channel of events
	// closed when the stream ends or ctx is cancelled.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error)
}
