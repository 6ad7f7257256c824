package convlog

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/brynhild/brynhild/pkg/models"
)

// Reader parses a JSONL conversation log, skipping malformed lines.
type Reader struct {
	events []Event
}

// Read parses every line of the log file at path.
func Read(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue // malformed lines are skipped, not fatal
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &Reader{events: events}, nil
}

// GetEvents returns every parsed event.
func (r *Reader) GetEvents() []Event { return r.events }

// GetInjections returns every context_injection event.
func (r *Reader) GetInjections() []Event {
	var out []Event
	for _, e := range r.events {
		if e.EventType == EventContextInjection {
			out = append(out, e)
		}
	}
	return out
}

// Context is the reconstructed system prompt at a point in the log.
type Context struct {
	SystemPrompt    string
	MessageInjects  []string
}

// GetContextAtVersion reconstructs the system prompt at context version v:
// the single context_init base prompt, with prepend injections placed
// before it and append injections placed after it, considering only
// injections whose context_version is <= v, in log order.
func (r *Reader) GetContextAtVersion(v int) (*Context, error) {
	var base string
	var haveBase bool
	var prepends, appends []string
	var messageInjects []string

	for _, e := range r.events {
		switch e.EventType {
		case EventContextInit:
			base, _ = e.Payload["content"].(string)
			haveBase = true
		case EventContextInjection:
			cv := toInt(e.Payload["context_version"])
			if cv > v {
				continue
			}
			content, _ := e.Payload["content"].(string)
			loc, _ := e.Payload["location"].(string)
			switch InjectionLocation(loc) {
			case LocationSystemPrompend:
				prepends = append(prepends, content)
			case LocationSystemAppend:
				appends = append(appends, content)
			case LocationMessageInject:
				messageInjects = append(messageInjects, content)
			}
		}
	}
	if !haveBase {
		return nil, fmt.Errorf("convlog: no context_init event found")
	}

	prompt := ""
	for _, p := range prepends {
		prompt += p
	}
	prompt += base
	for _, a := range appends {
		prompt += a
	}
	return &Context{SystemPrompt: prompt, MessageInjects: messageInjects}, nil
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	default:
		return 0
	}
}

// GetContextAtEvent finds the largest context_version seen by event n,
// then reconstructs the context at that version.
func (r *Reader) GetContextAtEvent(n int) (*Context, error) {
	version := 0
	for _, e := range r.events {
		if e.EventNumber > n {
			break
		}
		switch e.EventType {
		case EventContextInit, EventContextInjection:
			if v := toInt(e.Payload["context_version"]); v > version {
				version = v
			}
		}
	}
	return r.GetContextAtVersion(version)
}

// Validate recomputes the SHA-256 prefix on every hashed event and reports
// any mismatch.
func (r *Reader) Validate() (bool, []string) {
	var errs []string
	for _, e := range r.events {
		content, ok := e.Payload["content"].(string)
		if !ok {
			continue
		}
		want, ok := e.Payload["content_hash"].(string)
		if !ok {
			continue
		}
		sum := sha256.Sum256([]byte(content))
		got := hex.EncodeToString(sum[:])[:16]
		if content == "" {
			continue // redacted-in-private-mode events carry no content to check
		}
		if got != want {
			errs = append(errs, fmt.Sprintf("event %d: content_hash mismatch", e.EventNumber))
		}
	}
	return len(errs) == 0, errs
}

// ModelSwitch records one model_switch event's payload.
type ModelSwitch struct {
	EventNumber int
	NewModel    string
	NewProvider string
	Reason      string
}

// GetModelSwitches returns every model_switch event in order.
func (r *Reader) GetModelSwitches() []ModelSwitch {
	var out []ModelSwitch
	for _, e := range r.events {
		if e.EventType != EventModelSwitch {
			continue
		}
		model, _ := e.Payload["new_model"].(string)
		provider, _ := e.Payload["new_provider"].(string)
		reason, _ := e.Payload["reason"].(string)
		out = append(out, ModelSwitch{EventNumber: e.EventNumber, NewModel: model, NewProvider: provider, Reason: reason})
	}
	return out
}

// SessionInfo summarizes the session_start/session_end bookends.
type SessionInfo struct {
	SessionID string
	Started   bool
	Ended     bool
}

// GetSessionInfo reports whether this log has matching start/end markers.
func (r *Reader) GetSessionInfo() SessionInfo {
	var info SessionInfo
	for _, e := range r.events {
		switch e.EventType {
		case EventSessionStart:
			info.SessionID, _ = e.Payload["session_id"].(string)
			info.Started = true
		case EventSessionEnd:
			info.Ended = true
		}
	}
	return info
}

// LLMView is exactly what the model saw at a given turn.
type LLMView struct {
	SystemPrompt string
	Messages     []models.Message
}

// GetLLMViewAtTurn reconstructs the system prompt and messages up to and
// including the t-th user message (1-indexed).
func (r *Reader) GetLLMViewAtTurn(t int) (*LLMView, error) {
	userCount := 0
	var lastVersion int
	var messages []models.Message
	for _, e := range r.events {
		switch e.EventType {
		case EventContextInit, EventContextInjection:
			if v := toInt(e.Payload["context_version"]); v > lastVersion {
				lastVersion = v
			}
		case EventUserMessage:
			userCount++
			content, _ := e.Payload["content"].(string)
			messages = append(messages, models.Message{Role: models.RoleUser, Content: content})
			if userCount == t {
				ctx, err := r.GetContextAtVersion(lastVersion)
				if err != nil {
					return nil, err
				}
				return &LLMView{SystemPrompt: ctx.SystemPrompt, Messages: messages}, nil
			}
		case EventAssistantMessage, EventAssistantStreamEnd:
			content, _ := e.Payload["content"].(string)
			messages = append(messages, models.Message{Role: models.RoleAssistant, Content: content})
		case EventToolResult:
			name, _ := e.Payload["name"].(string)
			id, _ := e.Payload["id"].(string)
			output, _ := e.Payload["output"].(string)
			_ = name
			messages = append(messages, models.Message{Role: models.RoleToolResult, Content: output, ToolCallID: id})
		}
	}
	return nil, fmt.Errorf("convlog: turn %d not found (only %d user messages)", t, userCount)
}

// sortByEventNumber is a defensive helper in case a log is read out of
// order (e.g. concatenated fragments); callers that need a strict order
// should call this before relying on EventNumber monotonicity.
func sortByEventNumber(events []Event) {
	sort.Slice(events, func(i, j int) bool { return events[i].EventNumber < events[j].EventNumber })
}
