// Package processor implements the streaming tool-call loop that
// orchestrates hooks, tools, skills, recovery, and validation around one
// provider conversation turn.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/brynhild/brynhild/internal/convlog"
	"github.com/brynhild/brynhild/internal/hooks"
	"github.com/brynhild/brynhild/internal/promptbuilder"
	"github.com/brynhild/brynhild/internal/recovery"
	"github.com/brynhild/brynhild/internal/session"
	"github.com/brynhild/brynhild/internal/skills"
	"github.com/brynhild/brynhild/internal/tools"
	"github.com/brynhild/brynhild/internal/validate"
	"github.com/brynhild/brynhild/pkg/models"
	"github.com/brynhild/brynhild/pkg/provider"
	"github.com/brynhild/brynhild/pkg/renderer"
)

// Phase names one state in the run_turn state machine.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhasePreflight    Phase = "preflight"
	PhaseStreaming    Phase = "streaming"
	PhaseToolDispatch Phase = "tool_dispatch"
	PhaseComplete     Phase = "stream_complete"
)

// ErrCancelled is returned by RunTurn when callbacks.IsCancelled() fired
// mid-turn. Not a failure: the turn ended in a clean partial state.
var ErrCancelled = errors.New("processor: turn cancelled")

// BlockedError reports that a block-capable hook stopped the turn
// before it reached the provider.
type BlockedError struct {
	Event  hooks.Event
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked at %s: %s", e.Event, e.Reason)
}

// UnknownSkillError reports a /skill invocation naming a skill that
// does not exist; per spec this never reaches the provider.
type UnknownSkillError struct{ Name string }

func (e *UnknownSkillError) Error() string { return fmt.Sprintf("unknown skill %q", e.Name) }

// Config bounds one Processor's behavior.
type Config struct {
	MaxRoundsPerTurn int
	AutoApprove      bool
	// FinishTools names tool calls (case-insensitive) that terminate the
	// turn once executed, in addition to the default "finish".
	FinishTools []string
}

func (c Config) maxRounds() int {
	if c.MaxRoundsPerTurn > 0 {
		return c.MaxRoundsPerTurn
	}
	return 10
}

func (c Config) isFinishTool(name string) bool {
	lower := strings.ToLower(name)
	if lower == "finish" {
		return true
	}
	for _, n := range c.FinishTools {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// Processor wires every subsystem together and drives run_turn.
type Processor struct {
	Provider provider.LLMProvider
	Tools    *tools.Registry
	Hooks    *hooks.Manager
	Skills   *skills.Registry
	Convlog  *convlog.Logger
	Sessions *session.Manager
	Config   Config

	pending []string
}

// New builds a Processor. Hooks, Skills, Convlog, and Sessions may be
// nil; each is treated as a no-op collaborator when absent.
func New(p provider.LLMProvider, reg *tools.Registry, cfg Config) *Processor {
	return &Processor{Provider: p, Tools: reg, Config: cfg}
}

// RunTurn executes one full turn per §4.16: PREFLIGHT, a STREAMING /
// TOOL_DISPATCH loop bounded by Config.MaxRoundsPerTurn, and
// STREAM_COMPLETE. sess.Messages is mutated in place; callers persist it
// via p.Sessions (if set) or their own store.
func (p *Processor) RunTurn(ctx context.Context, sess *models.Session, pctx *promptbuilder.Context, userText, model, providerName string, cb renderer.Callbacks) error {
	if cb == nil {
		cb = renderer.NoopCallbacks{Approve: p.Config.AutoApprove}
	}

	userText, err := p.preflight(ctx, sess, userText)
	if err != nil {
		return err
	}

	finalText, err := p.streamLoop(ctx, sess, pctx, userText, model, providerName, cb)
	if err != nil {
		return err
	}

	return p.complete(ctx, sess, finalText)
}

// preflight runs step 1: USER_PROMPT_SUBMIT, skill preprocessing,
// logging, validation, and the pending-injection flush are interleaved
// with message-list mutation, returning the (possibly rewritten) user
// text to stream.
func (p *Processor) preflight(ctx context.Context, sess *models.Session, userText string) (string, error) {
	if p.Hooks != nil {
		decision, err := p.Hooks.Dispatch(ctx, &hooks.Context{
			Event: hooks.EventUserPromptSubmit, SessionID: sess.ID, Message: userText,
		})
		if err != nil {
			return "", err
		}
		if decision.Block {
			return "", &BlockedError{Event: hooks.EventUserPromptSubmit, Reason: decision.Reason}
		}
		if decision.ModifiedMessage != "" {
			userText = decision.ModifiedMessage
		}
		for _, inj := range decision.Injections {
			p.queueInjection(convlog.SourceHook, inj)
		}
	}

	if p.Skills != nil {
		rewritten, injected, matched, err := p.Skills.Preprocess(userText)
		if err != nil {
			var unk *skills.ErrUnknownSkill
			if errors.As(err, &unk) {
				return "", &UnknownSkillError{Name: unk.Name}
			}
			return "", err
		}
		if matched {
			userText = rewritten
			if injected != "" {
				p.queueInjection(convlog.SourceSkillTrigger, injected)
			}
		}
	}

	if p.Convlog != nil {
		p.Convlog.LogUserMessage(userText)
	}

	if v := validate.Validate(sess.Messages, validate.Strict); len(v) > 0 {
		return "", fmt.Errorf("processor: message list invalid: %s", v[0].String())
	}

	p.flushPendingInjections(sess)
	sess.Messages = append(sess.Messages, models.Message{Role: models.RoleUser, Content: userText})

	if p.Hooks != nil {
		decision, err := p.Hooks.Dispatch(ctx, &hooks.Context{
			Event: hooks.EventPreMessage, SessionID: sess.ID, Message: userText,
		})
		if err != nil {
			return "", err
		}
		if decision.Block {
			return "", &BlockedError{Event: hooks.EventPreMessage, Reason: decision.Reason}
		}
		if decision.ModifiedMessage != "" {
			sess.Messages[len(sess.Messages)-1].Content = decision.ModifiedMessage
		}
		for _, inj := range decision.Injections {
			p.queueInjection(convlog.SourceHook, inj)
		}
	}

	return userText, nil
}

// queueInjection stashes a hook/skill-originated injection to be
// flushed into the message list as a single synthetic user message
// before the next provider call.
func (p *Processor) queueInjection(source convlog.InjectionSource, content string) {
	if content == "" {
		return
	}
	if p.Convlog != nil {
		p.Convlog.LogContextInjection(source, convlog.LocationMessageInject, content, "", "", "")
	}
	p.pending = append(p.pending, content)
}

// flushPendingInjections concatenates every queued injection into one
// "[System guidance]"-prefixed user message and clears the queue. A
// no-op when nothing is pending.
func (p *Processor) flushPendingInjections(sess *models.Session) {
	if len(p.pending) == 0 {
		return
	}
	combined := strings.Join(p.pending, "\n\n")
	sess.Messages = append(sess.Messages, models.Message{
		Role:    models.RoleUser,
		Content: "[System guidance] " + combined,
	})
	p.pending = nil
}

// streamLoop runs STREAMING/TOOL_DISPATCH rounds until the provider
// stops without a tool call, a finish tool fires, or MaxRoundsPerTurn is
// reached. It returns the text of the final assistant turn.
func (p *Processor) streamLoop(ctx context.Context, sess *models.Session, pctx *promptbuilder.Context, userText, model, providerName string, cb renderer.Callbacks) (string, error) {
	if p.Provider == nil {
		return "", errors.New("processor: no provider configured")
	}

	var finalText string
	schemas := p.toolSchemas()
	recoverySchemas := p.recoverySchemas()

	for round := 0; round < p.Config.maxRounds(); round++ {
		p.flushPendingInjections(sess)

		if cb.IsCancelled() {
			p.logStreamEnd(finalText)
			return finalText, ErrCancelled
		}

		system := ""
		if pctx != nil {
			system = pctx.SystemPrompt
		}
		req := provider.CompletionRequest{
			Model:     model,
			System:    system,
			Messages:  append([]models.Message(nil), sess.Messages...),
			Tools:     schemas,
			MaxTokens: 4096,
		}

		events, err := p.Provider.Stream(ctx, req)
		if err != nil {
			p.logError("provider_error", err.Error())
			return finalText, err
		}

		var textBuf, thinkingBuf strings.Builder
		var toolCalls []models.ToolCall
		cancelled := false

		for ev := range events {
			if ev.Err != nil {
				p.logError("stream_error", ev.Err.Error())
				return finalText, ev.Err
			}
			switch ev.Type {
			case provider.EventStreamStart:
				cb.OnStreamStart()
			case provider.EventThinkingDelta:
				thinkingBuf.WriteString(ev.Delta)
				cb.OnThinkingDelta(ev.Delta)
			case provider.EventThinkingComplete:
				cb.OnThinkingComplete(thinkingBuf.String())
			case provider.EventTextDelta:
				textBuf.WriteString(ev.Delta)
				cb.OnTextDelta(ev.Delta)
			case provider.EventTextComplete:
				cb.OnTextComplete(textBuf.String())
			case provider.EventToolUse:
				if ev.ToolUse != nil {
					toolCalls = append(toolCalls, *ev.ToolUse)
				}
			case provider.EventUsage:
				if ev.Usage != nil {
					cb.OnUsageUpdate(*ev.Usage)
				}
			}
			if cb.IsCancelled() {
				cancelled = true
				break
			}
		}

		if cancelled {
			finalText = textBuf.String()
			p.logStreamEnd(finalText)
			return finalText, ErrCancelled
		}

		// Step 3: recover a tool call from thinking text when the
		// provider emitted none natively.
		if len(toolCalls) == 0 && thinkingBuf.Len() > 0 {
			if result, ok := recovery.Recover(thinkingBuf.String(), recoverySchemas); ok {
				input, _ := json.Marshal(result.Input)
				toolCalls = append(toolCalls, models.ToolCall{
					ID:           recoveredCallID(round),
					Name:         result.ToolName,
					Input:        input,
					IsRecovered:  true,
					RecoveryType: result.RecoveryType,
				})
			}
		}

		if len(toolCalls) == 0 {
			finalText = textBuf.String()
			sess.Messages = append(sess.Messages, models.Message{Role: models.RoleAssistant, Content: finalText})
			return finalText, nil
		}

		finishing, err := p.dispatchTools(ctx, sess, toolCalls, textBuf.String(), cb)
		if err != nil {
			return finalText, err
		}
		finalText = textBuf.String()
		if finishing {
			return finalText, nil
		}
	}

	return finalText, nil
}

// dispatchTools runs TOOL_DISPATCH (step 4) for one round's tool calls,
// in order, appending the assistant-with-tool-calls message once and
// then every tool-result message to sess.Messages. It reports whether a
// finish tool fired.
func (p *Processor) dispatchTools(ctx context.Context, sess *models.Session, toolCalls []models.ToolCall, assistantText string, cb renderer.Callbacks) (bool, error) {
	sess.Messages = append(sess.Messages, models.Message{
		Role:      models.RoleAssistant,
		Content:   assistantText,
		ToolCalls: toolCalls,
	})

	finishing := false

	for _, tc := range toolCalls {
		if cb.IsCancelled() {
			return finishing, ErrCancelled
		}

		result := p.dispatchOneTool(ctx, sess, tc, cb)
		sess.Messages = append(sess.Messages, models.Message{
			Role:       models.RoleToolResult,
			ToolCallID: tc.ID,
			Content:    resultContent(result),
		})

		if p.Config.isFinishTool(tc.Name) {
			finishing = true
		}
	}

	return finishing, nil
}

func resultContent(r models.ToolResult) string {
	if !r.Success {
		return r.Error
	}
	return r.Output
}

// dispatchOneTool runs PRE_TOOL_USE, the permission check, execution,
// and POST_TOOL_USE for a single tool call.
func (p *Processor) dispatchOneTool(ctx context.Context, sess *models.Session, tc models.ToolCall, cb renderer.Callbacks) models.ToolResult {
	toolInput := decodeInput(tc.Input)

	if p.Hooks != nil {
		decision, err := p.Hooks.Dispatch(ctx, &hooks.Context{
			Event: hooks.EventPreToolUse, SessionID: sess.ID, ToolName: tc.Name, ToolInput: toolInput,
		})
		if err == nil {
			for _, inj := range decision.Injections {
				p.queueInjection(convlog.SourceHook, inj)
			}
			if decision.Block {
				result := models.Failed(decision.Reason)
				cb.OnToolResult(tc, result)
				return result
			}
			if len(decision.ModifiedInput) > 0 {
				if data, merr := json.Marshal(decision.ModifiedInput); merr == nil {
					tc.Input = data
					toolInput = decision.ModifiedInput
				}
			}
		}
	}

	cb.OnToolCall(tc)

	if t := p.Tools.Get(tc.Name); t != nil && t.RequiresPermission() && !p.Config.AutoApprove {
		if !cb.RequestToolPermission(tc) {
			result := models.Failed("Permission denied")
			p.logToolEvent(tc, result)
			cb.OnToolResult(tc, result)
			return result
		}
	}

	result := p.execute(ctx, tc)

	if p.Hooks != nil {
		postCtx := &hooks.Context{
			Event: hooks.EventPostToolUse, SessionID: sess.ID, ToolName: tc.Name, ToolInput: toolInput,
			Extra: map[string]any{"success": result.Success, "output": result.Output, "error": result.Error},
		}
		decision, err := p.Hooks.Dispatch(ctx, postCtx)
		if err == nil {
			if decision.ModifiedOutput != "" {
				result.Output = decision.ModifiedOutput
			}
			for _, inj := range decision.Injections {
				p.queueInjection(convlog.SourceHook, inj)
			}
		}
	}

	p.logToolEvent(tc, result)
	cb.OnToolResult(tc, result)
	return result
}

func (p *Processor) execute(ctx context.Context, tc models.ToolCall) (result models.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			result = models.Failed(fmt.Sprintf("tool panicked: %v", r))
		}
	}()
	if p.Tools == nil {
		return models.Failed(fmt.Sprintf("no tool registry configured for %q", tc.Name))
	}
	res, err := p.Tools.Execute(ctx, tc.Name, tc.Input)
	if err != nil {
		return models.Failed(err.Error())
	}
	return res
}

func decodeInput(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func (p *Processor) logToolEvent(tc models.ToolCall, result models.ToolResult) {
	if p.Convlog == nil {
		return
	}
	callType := "native"
	if tc.IsRecovered {
		callType = "recovered"
	}
	p.Convlog.LogToolCall(tc.Name, decodeInput(tc.Input), tc.ID, callType)
	p.Convlog.LogToolResult(tc.Name, result.Success, resultContent(result), tc.ID)
}

func (p *Processor) logError(errType, message string) {
	if p.Convlog != nil {
		p.Convlog.LogError(errType, message)
	}
	if p.Hooks != nil {
		_, _ = p.Hooks.Dispatch(context.Background(), &hooks.Context{Event: hooks.EventError, Message: message})
	}
}

func (p *Processor) logStreamEnd(text string) {
	if p.Convlog != nil {
		p.Convlog.LogAssistantStreamEnd(text)
	}
}

// complete runs STREAM_COMPLETE (step 6): POST_MESSAGE, final logging,
// and session persistence.
func (p *Processor) complete(ctx context.Context, sess *models.Session, finalText string) error {
	if p.Hooks != nil {
		decision, err := p.Hooks.Dispatch(ctx, &hooks.Context{Event: hooks.EventPostMessage, SessionID: sess.ID, Message: finalText})
		if err == nil && decision.ModifiedMessage != "" {
			finalText = decision.ModifiedMessage
			if n := len(sess.Messages); n > 0 && sess.Messages[n-1].Role == models.RoleAssistant {
				sess.Messages[n-1].Content = finalText
			}
		}
	}

	if p.Convlog != nil {
		p.Convlog.LogAssistantMessage(finalText)
	}

	if p.Sessions != nil {
		return p.Sessions.Save(sess)
	}
	return nil
}

func (p *Processor) toolSchemas() []provider.ToolSchema {
	if p.Tools == nil {
		return nil
	}
	names := p.Tools.Names()
	out := make([]provider.ToolSchema, 0, len(names))
	for _, name := range names {
		t := p.Tools.Get(name)
		if t == nil {
			continue
		}
		out = append(out, provider.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return out
}

func (p *Processor) recoverySchemas() []recovery.ToolSchema {
	if p.Tools == nil {
		return nil
	}
	names := p.Tools.Names()
	out := make([]recovery.ToolSchema, 0, len(names))
	for _, name := range names {
		t := p.Tools.Get(name)
		if t == nil {
			continue
		}
		schema := t.InputSchema()
		out = append(out, recovery.ToolSchema{
			Name:     name,
			Required: stringList(schema["required"]),
			Props:    propertyNames(schema["properties"]),
		})
	}
	return out
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func propertyNames(v any) []string {
	props, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(props))
	for k := range props {
		out = append(out, k)
	}
	return out
}

func recoveredCallID(round int) string {
	return fmt.Sprintf("recovered-%d", round)
}
