package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/brynhild/brynhild/pkg/models"
)

// Anthropic adapts anthropic-sdk-go's streaming Messages API to
// LLMProvider. All wire-format concerns (SSE framing, content-block
// union types, stop reasons) stay inside this file; everything outside
// pkg/provider only ever sees StreamEvent.
type Anthropic struct {
	client anthropic.Client
}

// NewAnthropic builds an adapter using the given API key. An empty key
// defers to the SDK's own ANTHROPIC_API_KEY environment lookup.
func NewAnthropic(apiKey string) *Anthropic {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &Anthropic{client: anthropic.NewClient(opts...)}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  toAnthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
	}

	stream := a.client.Messages.NewStreaming(ctx, params)

	out := make(chan StreamEvent, 16)
	go func() {
		defer close(out)
		out <- StreamEvent{Type: EventStreamStart}

		var currentToolName, currentToolID string
		var toolInputJSON []byte

		for stream.Next() {
			event := stream.Current()
			switch variant := event.AsAny().(type) {
			case anthropic.ContentBlockStartEvent:
				if block, ok := variant.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
					currentToolName = block.Name
					currentToolID = block.ID
					toolInputJSON = toolInputJSON[:0]
				}
			case anthropic.ContentBlockDeltaEvent:
				switch delta := variant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					out <- StreamEvent{Type: EventTextDelta, Delta: delta.Text}
				case anthropic.ThinkingDelta:
					out <- StreamEvent{Type: EventThinkingDelta, Delta: delta.Thinking}
				case anthropic.InputJSONDelta:
					toolInputJSON = append(toolInputJSON, delta.PartialJSON...)
				}
			case anthropic.ContentBlockStopEvent:
				if currentToolName != "" {
					input := toolInputJSON
					if len(input) == 0 {
						input = []byte("{}")
					}
					out <- StreamEvent{
						Type: EventToolUse,
						ToolUse: &models.ToolCall{
							ID:    currentToolID,
							Name:  currentToolName,
							Input: json.RawMessage(input),
						},
					}
					currentToolName = ""
					currentToolID = ""
				} else {
					out <- StreamEvent{Type: EventContentStop}
				}
			case anthropic.MessageDeltaEvent:
				if variant.Usage.OutputTokens != 0 {
					out <- StreamEvent{Type: EventUsage, Usage: &Usage{
						OutputTokens: int(variant.Usage.OutputTokens),
					}}
				}
			case anthropic.MessageStopEvent:
				out <- StreamEvent{Type: EventMessageStop}
			}
		}
		if err := stream.Err(); err != nil {
			out <- StreamEvent{Type: EventMessageStop, Err: fmt.Errorf("anthropic: stream: %w", err)}
		}
	}()
	return out, nil
}

func toAnthropicMessages(msgs []models.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case models.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case models.RoleAssistant:
			blocks := []anthropic.ContentBlockParamUnion{}
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input any
				_ = json.Unmarshal(tc.Input, &input)
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case models.RoleToolResult, models.RoleTool:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
			))
		}
	}
	return out
}

func toAnthropicTools(tools []ToolSchema) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.InputSchema["properties"],
				},
			},
		})
	}
	return out
}
