// Package profile resolves per-model system-prompt bundles (ModelProfile)
// from built-in, plugin, and user sources.
package profile

import (
	"fmt"
	"strings"
)

// ModelProfile is a per-model bundle of system-prompt prefix/suffix, named
// patterns, and API parameters.
type ModelProfile struct {
	Name               string            `yaml:"name"`
	Family             string            `yaml:"family,omitempty"`
	Description        string            `yaml:"description,omitempty"`
	SystemPromptPrefix string            `yaml:"system_prompt_prefix,omitempty"`
	SystemPromptSuffix string            `yaml:"system_prompt_suffix,omitempty"`
	PromptPatterns     map[string]string `yaml:"prompt_patterns,omitempty"`
	EnabledPatterns    []string          `yaml:"enabled_patterns,omitempty"`
	DefaultTemperature *float64          `yaml:"default_temperature,omitempty"`
	APIParams          map[string]any    `yaml:"api_params,omitempty"`
	MinMaxTokens       *int              `yaml:"min_max_tokens,omitempty"`
}

// PromptSlot names one piece contributed to the final system prompt, for
// injection logging.
type PromptSlot struct {
	Name    string
	Content string
}

// BuildSystemPrompt concatenates prefix, each enabled pattern (in order),
// base, and suffix, also returning the non-empty slots in emission order
// so a caller can log one injection per slot.
func (p *ModelProfile) BuildSystemPrompt(base string) (string, []PromptSlot) {
	var slots []PromptSlot
	var b strings.Builder

	if p.SystemPromptPrefix != "" {
		slots = append(slots, PromptSlot{Name: "prefix", Content: p.SystemPromptPrefix})
		b.WriteString(p.SystemPromptPrefix)
	}
	for _, name := range p.EnabledPatterns {
		pattern, ok := p.PromptPatterns[name]
		if !ok || pattern == "" {
			continue
		}
		slots = append(slots, PromptSlot{Name: name, Content: pattern})
		b.WriteString(pattern)
	}
	b.WriteString(base)
	if p.SystemPromptSuffix != "" {
		slots = append(slots, PromptSlot{Name: "suffix", Content: p.SystemPromptSuffix})
		b.WriteString(p.SystemPromptSuffix)
	}
	return b.String(), slots
}

// CollisionError reports that two enabled plugins both provide a profile
// of the same name.
type CollisionError struct {
	Name    string
	Plugins []string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("profile: name %q provided by multiple plugins: %s", e.Name, strings.Join(e.Plugins, ", "))
}
