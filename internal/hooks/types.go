// Package hooks dispatches configured lifecycle and tool-use events to
// command and script handlers, honoring each event's block/modify
// capabilities.
package hooks

// Event names one point in the conversation lifecycle a hook can bind to.
type Event string

const (
	EventSessionStart      Event = "session_start"
	EventSessionEnd        Event = "session_end"
	EventError             Event = "error"
	EventPluginInit        Event = "plugin_init"
	EventPluginShutdown    Event = "plugin_shutdown"
	EventPreToolUse        Event = "pre_tool_use"
	EventPreMessage        Event = "pre_message"
	EventUserPromptSubmit  Event = "user_prompt_submit"
	EventPostToolUse       Event = "post_tool_use"
	EventPostMessage       Event = "post_message"
	EventPreCompact        Event = "pre_compact"
)

// Capability describes what an event is allowed to do with its handlers'
// results.
type Capability struct {
	CanBlock  bool
	CanModify bool
}

// capabilities is the fixed event capability table.
var capabilities = map[Event]Capability{
	EventSessionStart:     {CanBlock: false, CanModify: false},
	EventSessionEnd:       {CanBlock: false, CanModify: false},
	EventError:            {CanBlock: false, CanModify: false},
	EventPluginInit:       {CanBlock: false, CanModify: false},
	EventPluginShutdown:   {CanBlock: false, CanModify: false},
	EventPreToolUse:       {CanBlock: true, CanModify: true},
	EventPreMessage:       {CanBlock: true, CanModify: true},
	EventUserPromptSubmit: {CanBlock: true, CanModify: true},
	EventPostToolUse:      {CanBlock: false, CanModify: true},
	EventPostMessage:      {CanBlock: false, CanModify: true},
	EventPreCompact:       {CanBlock: false, CanModify: true},
}

// CapabilitiesFor returns the capability table entry for event.
func CapabilitiesFor(event Event) Capability {
	return capabilities[event]
}

// Kind names which mechanism a hook definition uses.
type Kind string

const (
	KindCommand Kind = "command"
	KindScript  Kind = "script"
	KindPrompt  Kind = "prompt" // reserved, not yet dispatched
)

// TimeoutAction decides what happens when a hook exceeds its timeout.
type TimeoutAction string

const (
	// TimeoutContinue is the default: a timed-out hook is treated as if it
	// had returned no instruction, and the turn proceeds.
	TimeoutContinue TimeoutAction = "continue"
	TimeoutBlock    TimeoutAction = "block"
)

// Definition is one configured hook binding.
type Definition struct {
	Name           string        `yaml:"name"`
	Event          Event         `yaml:"event"`
	Kind           Kind          `yaml:"kind"`
	Command        string        `yaml:"command,omitempty"`
	Script         string        `yaml:"script,omitempty"`
	Matcher        string        `yaml:"matcher,omitempty"`
	TimeoutSeconds int           `yaml:"timeout_seconds,omitempty"`
	OnTimeout      TimeoutAction `yaml:"on_timeout,omitempty"`
	Source         string        `yaml:"-"` // plugin name, or "" for user-configured
}

// EffectiveOnTimeout returns the hook's timeout behavior, defaulting to
// continue when unset.
func (d *Definition) EffectiveOnTimeout() TimeoutAction {
	if d.OnTimeout == "" {
		return TimeoutContinue
	}
	return d.OnTimeout
}

// Outcome is one hook handler's parsed result.
type Outcome struct {
	Block           bool
	Reason          string
	Inject          string
	ModifiedMessage string
	ModifiedInput   map[string]any
	ModifiedOutput  string
	TimedOut        bool
}
