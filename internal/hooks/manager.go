package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/brynhild/brynhild/internal/logging"
)

// Context is the serializable payload handed to a hook process, both as
// environment variables (ToEnv) and as JSON on stdin (ToJSON).
type Context struct {
	Event      Event          `json:"event"`
	SessionID  string         `json:"session_id"`
	ToolName   string         `json:"tool_name,omitempty"`
	ToolInput  map[string]any `json:"tool_input,omitempty"`
	Message    string         `json:"message,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// ToEnvVars renders the context as BRYNHILD_HOOK_* environment variables
// for command-kind hooks.
func (c *Context) ToEnvVars() []string {
	env := []string{
		"BRYNHILD_HOOK_EVENT=" + string(c.Event),
		"BRYNHILD_HOOK_SESSION_ID=" + c.SessionID,
	}
	if c.ToolName != "" {
		env = append(env, "BRYNHILD_HOOK_TOOL_NAME="+c.ToolName)
	}
	if c.Message != "" {
		env = append(env, "BRYNHILD_HOOK_MESSAGE="+c.Message)
	}
	if c.ToolInput != nil {
		if data, err := json.Marshal(c.ToolInput); err == nil {
			env = append(env, "BRYNHILD_HOOK_TOOL_INPUT="+string(data))
		}
	}
	return env
}

// ToJSON renders the context for script-kind hooks, delivered on stdin.
func (c *Context) ToJSON() ([]byte, error) {
	return json.Marshal(c)
}

// Decision is the result of dispatching one event to all matching hooks.
type Decision struct {
	Block           bool
	Reason          string
	Injections      []string
	ModifiedMessage string
	ModifiedInput   map[string]any
	ModifiedOutput  string
}

// Manager holds configured hook definitions and dispatches events to them.
type Manager struct {
	mu     sync.RWMutex
	byName map[string]*Definition
	byEvent map[Event][]*Definition
	logger *logging.Logger
}

// NewManager builds an empty Manager.
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		byName:  map[string]*Definition{},
		byEvent: map[Event][]*Definition{},
		logger:  logger.With("component", "hooks"),
	}
}

// Register adds or replaces a hook definition, keyed by name.
func (m *Manager) Register(d *Definition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byName[d.Name]; ok {
		m.removeFromEventLocked(existing)
	}
	m.byName[d.Name] = d
	m.byEvent[d.Event] = append(m.byEvent[d.Event], d)
}

func (m *Manager) removeFromEventLocked(d *Definition) {
	list := m.byEvent[d.Event]
	for i, existing := range list {
		if existing == d {
			m.byEvent[d.Event] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Dispatch runs every hook bound to hctx.Event whose matcher (if any)
// matches hctx.ToolName (a matcher is not checked when hctx.ToolName is
// empty), merging outcomes per the capability table:
// errors and timeouts (unless on_timeout: block) never escalate to
// BLOCK; modify-capable events accumulate injections from every hook
// that runs, in registration order.
func (m *Manager) Dispatch(ctx context.Context, hctx *Context) (*Decision, error) {
	m.mu.RLock()
	defs := append([]*Definition(nil), m.byEvent[hctx.Event]...)
	m.mu.RUnlock()

	cap := CapabilitiesFor(hctx.Event)
	decision := &Decision{}

	for _, d := range defs {
		if d.Matcher != "" && hctx.ToolName != "" {
			matched, err := regexp.MatchString(d.Matcher, hctx.ToolName)
			if err != nil || !matched {
				continue
			}
		}

		outcome, err := m.run(ctx, d, hctx)
		if err != nil {
			m.logger.Warn("hook execution error", "hook", d.Name, "event", hctx.Event, "error", err)
			continue
		}
		if outcome.TimedOut {
			m.logger.Warn("hook timed out", "hook", d.Name, "event", hctx.Event)
			if d.EffectiveOnTimeout() != TimeoutBlock || !cap.CanBlock {
				continue
			}
			decision.Block = true
			decision.Reason = fmt.Sprintf("hook %q timed out", d.Name)
			return decision, nil
		}

		if cap.CanBlock && outcome.Block {
			decision.Block = true
			decision.Reason = outcome.Reason
			return decision, nil
		}
		if cap.CanModify && outcome.Inject != "" {
			decision.Injections = append(decision.Injections, outcome.Inject)
		}
		if cap.CanModify && outcome.ModifiedMessage != "" {
			decision.ModifiedMessage = outcome.ModifiedMessage
		}
		if cap.CanModify && len(outcome.ModifiedInput) > 0 {
			decision.ModifiedInput = outcome.ModifiedInput
		}
		if cap.CanModify && outcome.ModifiedOutput != "" {
			decision.ModifiedOutput = outcome.ModifiedOutput
		}
	}

	return decision, nil
}

func (m *Manager) run(ctx context.Context, d *Definition, hctx *Context) (*Outcome, error) {
	timeout := time.Duration(d.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch d.Kind {
	case KindCommand:
		return m.runCommand(runCtx, d, hctx)
	case KindScript:
		return m.runScript(runCtx, d, hctx)
	default:
		return &Outcome{}, fmt.Errorf("hooks: unsupported kind %q for hook %q", d.Kind, d.Name)
	}
}

func (m *Manager) runCommand(ctx context.Context, d *Definition, hctx *Context) (*Outcome, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", d.Command)
	cmd.Env = append(cmd.Env, hctx.ToEnvVars()...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	// A child of sh can keep the stdout pipe open after sh is killed;
	// WaitDelay stops Run from waiting on it past the timeout.
	cmd.WaitDelay = 100 * time.Millisecond
	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return &Outcome{TimedOut: true}, nil
	}
	if err != nil {
		return &Outcome{}, fmt.Errorf("command hook %q: %w", d.Name, err)
	}
	return parseOutcome(stdout.Bytes())
}

func (m *Manager) runScript(ctx context.Context, d *Definition, hctx *Context) (*Outcome, error) {
	payload, err := hctx.ToJSON()
	if err != nil {
		return &Outcome{}, err
	}
	cmd := exec.CommandContext(ctx, d.Script)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.WaitDelay = 100 * time.Millisecond
	err = cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return &Outcome{TimedOut: true}, nil
	}
	if err != nil {
		return &Outcome{}, fmt.Errorf("script hook %q: %w", d.Name, err)
	}
	return parseOutcome(stdout.Bytes())
}

// parseOutcome decodes a hook's stdout. An empty response is a no-op
// outcome and non-JSON stdout becomes a plain-text injection; neither is
// treated as an error that could escalate to BLOCK.
func parseOutcome(out []byte) (*Outcome, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return &Outcome{}, nil
	}
	var raw struct {
		Block           bool           `json:"block"`
		Reason          string         `json:"reason"`
		Inject          string         `json:"inject"`
		ModifiedMessage string         `json:"modified_message"`
		ModifiedInput   map[string]any `json:"modified_input"`
		ModifiedOutput  string         `json:"modified_output"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		// Non-JSON stdout is treated as a plain-text injection candidate.
		return &Outcome{Inject: strings.TrimSpace(string(trimmed))}, nil
	}
	return &Outcome{
		Block:           raw.Block,
		Reason:          raw.Reason,
		Inject:          raw.Inject,
		ModifiedMessage: raw.ModifiedMessage,
		ModifiedInput:   raw.ModifiedInput,
		ModifiedOutput:  raw.ModifiedOutput,
	}, nil
}
