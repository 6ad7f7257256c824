// Package convlog implements the append-only conversation event log and
// the reader that reconstructs context from it.
package convlog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// EventType names one kind of conversation log event.
type EventType string

const (
	EventSessionStart        EventType = "session_start"
	EventSessionEnd          EventType = "session_end"
	EventContextInit         EventType = "context_init"
	EventContextInjection    EventType = "context_injection"
	EventContextReady        EventType = "context_ready"
	EventContextCheckpoint   EventType = "context_checkpoint"
	EventContextReset        EventType = "context_reset"
	EventModelSwitch         EventType = "model_switch"
	EventUserMessage         EventType = "user_message"
	EventAssistantMessage    EventType = "assistant_message"
	EventAssistantStreamEnd  EventType = "assistant_stream_end"
	EventToolCall            EventType = "tool_call"
	EventToolResult          EventType = "tool_result"
	EventError               EventType = "error"
)

// InjectionSource names where an injection originated.
type InjectionSource string

const (
	SourceRules         InjectionSource = "rules"
	SourceSkillMetadata InjectionSource = "skill_metadata"
	SourceSkillTrigger  InjectionSource = "skill_trigger"
	SourceHook          InjectionSource = "hook"
	SourceProfile       InjectionSource = "profile"
)

// InjectionLocation names where an injection was placed.
type InjectionLocation string

const (
	LocationSystemPrompend InjectionLocation = "system_prompt_prepend"
	LocationSystemAppend   InjectionLocation = "system_prompt_append"
	LocationMessageInject  InjectionLocation = "message_inject"
)

// Event is one line of the conversation log.
type Event struct {
	EventNumber int             `json:"event_number"`
	Timestamp   string          `json:"timestamp"`
	EventType   EventType       `json:"event_type"`
	Payload     map[string]any  `json:"payload"`
}

// Logger is an append-only JSONL writer for one session's conversation
// log. Every append is a complete line with a trailing newline; no
// external writer is permitted on the same file while a Logger owns it.
type Logger struct {
	mu            sync.Mutex
	file          *os.File
	eventNumber   int
	contextVer    int
	privateMode   bool
	privateEvents map[EventType]bool
	now           func() time.Time
}

// Options configures a new Logger.
type Options struct {
	PrivateMode   bool
	PrivateEvents []EventType
	// Now overrides the clock; defaults to time.Now (tests only).
	Now func() time.Time
}

// Open opens (creating if needed) the log file at path for appending.
func Open(path string, opts Options) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	priv := map[EventType]bool{}
	for _, e := range opts.PrivateEvents {
		priv[e] = true
	}
	return &Logger{file: f, privateMode: opts.PrivateMode, privateEvents: priv, now: now}, nil
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

func (l *Logger) append(eventType EventType, payload map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if content, ok := payload["content"].(string); ok {
		payload["content_hash"] = contentHash(content)
		if l.privateMode && l.privateEvents[eventType] {
			payload["content"] = ""
		}
	}

	l.eventNumber++
	ev := Event{
		EventNumber: l.eventNumber,
		Timestamp:   l.now().UTC().Format(time.RFC3339Nano),
		EventType:   eventType,
		Payload:     payload,
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := l.file.Write(line); err != nil {
		// Best-effort: a failed append is surfaced to the caller but never
		// halts the conversation by itself.
		return fmt.Errorf("convlog: append failed: %w", err)
	}
	return nil
}

func (l *Logger) LogSessionStart(sessionID string) error {
	return l.append(EventSessionStart, map[string]any{"session_id": sessionID})
}

func (l *Logger) LogSessionEnd(sessionID string) error {
	return l.append(EventSessionEnd, map[string]any{"session_id": sessionID})
}

func (l *Logger) LogContextInit(basePrompt string) error {
	l.mu.Lock()
	l.contextVer++
	ver := l.contextVer
	l.mu.Unlock()
	return l.append(EventContextInit, map[string]any{"content": basePrompt, "context_version": ver})
}

func (l *Logger) LogContextInjection(source InjectionSource, location InjectionLocation, content, origin, triggerType, triggerMatch string) error {
	l.mu.Lock()
	l.contextVer++
	ver := l.contextVer
	l.mu.Unlock()
	return l.append(EventContextInjection, map[string]any{
		"source":         source,
		"location":       location,
		"content":        content,
		"origin":         origin,
		"trigger_type":   triggerType,
		"trigger_match":  triggerMatch,
		"context_version": ver,
	})
}

func (l *Logger) LogContextReady(promptHash string) error {
	return l.append(EventContextReady, map[string]any{"prompt_hash": promptHash})
}

func (l *Logger) LogContextCheckpoint(prompt string) error {
	return l.append(EventContextCheckpoint, map[string]any{"content": prompt})
}

// LogContextReset resets the context version counter to 1 (the reset
// event itself does not increment it).
func (l *Logger) LogContextReset(newBase, reason string) error {
	l.mu.Lock()
	l.contextVer = 1
	l.mu.Unlock()
	return l.append(EventContextReset, map[string]any{"content": newBase, "reason": reason})
}

func (l *Logger) LogModelSwitch(newModel, newProvider, reason string, preserveContext bool) error {
	return l.append(EventModelSwitch, map[string]any{
		"new_model":        newModel,
		"new_provider":     newProvider,
		"reason":           reason,
		"preserve_context": preserveContext,
	})
}

func (l *Logger) LogUserMessage(content string) error {
	return l.append(EventUserMessage, map[string]any{"content": content})
}

func (l *Logger) LogAssistantMessage(content string) error {
	return l.append(EventAssistantMessage, map[string]any{"content": content})
}

func (l *Logger) LogAssistantStreamEnd(content string) error {
	return l.append(EventAssistantStreamEnd, map[string]any{"content": content})
}

func (l *Logger) LogToolCall(name string, input any, id, callType string) error {
	return l.append(EventToolCall, map[string]any{
		"name": name, "input": input, "id": id, "call_type": callType,
	})
}

func (l *Logger) LogToolResult(name string, success bool, output, id string) error {
	return l.append(EventToolResult, map[string]any{
		"name": name, "success": success, "output": output, "id": id,
	})
}

func (l *Logger) LogError(errType, message string) error {
	return l.append(EventError, map[string]any{"error_type": errType, "message": message})
}

// ContextVersion returns the current context version counter.
func (l *Logger) ContextVersion() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.contextVer
}
