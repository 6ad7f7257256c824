// Package promptbuilder assembles the system prompt and records every
// contribution as a context_injection event on the conversation log.
package promptbuilder

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/brynhild/brynhild/internal/convlog"
	"github.com/brynhild/brynhild/internal/profile"
	"github.com/brynhild/brynhild/internal/rules"
	"github.com/brynhild/brynhild/internal/skills"
)

// Context is the fully assembled, ready-to-send prompt state for one
// (session, model) pair.
type Context struct {
	SystemPrompt  string
	BasePrompt    string
	Injections    []profile.PromptSlot
	Profile       *profile.ModelProfile
	SkillRegistry *skills.Registry
}

// Builder produces Context values, logging each injection and a final
// context_ready event.
type Builder struct {
	Rules    *rules.Manager
	Skills   *skills.Registry
	Profiles *profile.Manager
	Logger   *convlog.Logger
}

// Build assembles the system prompt for basePrompt against model/provider,
// in the fixed order: rules prepend, skill metadata append, profile
// prefix/patterns/suffix. Every non-empty contribution is logged as a
// context_injection event; the final event is context_ready.
func (b *Builder) Build(basePrompt, model, provider string) (*Context, error) {
	ctx := &Context{BasePrompt: basePrompt, SkillRegistry: b.Skills}

	if b.Logger != nil {
		b.Logger.LogContextInit(basePrompt)
	}

	assembled := basePrompt

	if b.Rules != nil {
		ruleText, err := b.Rules.Load()
		if err != nil {
			return nil, fmt.Errorf("promptbuilder: loading rules: %w", err)
		}
		if wrapped := rules.Wrap(ruleText); wrapped != "" {
			assembled = wrapped + "\n\n" + assembled
			if b.Logger != nil {
				b.Logger.LogContextInjection(convlog.SourceRules, convlog.LocationSystemPrompend, wrapped, "", "", "")
			}
		}
	}

	if b.Skills != nil {
		if meta := b.Skills.GetMetadataForPrompt(); meta != "" {
			assembled = assembled + "\n\n" + meta
			if b.Logger != nil {
				b.Logger.LogContextInjection(convlog.SourceSkillMetadata, convlog.LocationSystemAppend, meta, "", "", "")
			}
		}
	}

	var prof *profile.ModelProfile
	if b.Profiles != nil {
		prof = b.Profiles.Resolve(model, provider)
	}
	ctx.Profile = prof

	if prof != nil {
		built, slots := prof.BuildSystemPrompt(assembled)
		assembled = built
		ctx.Injections = slots
		if b.Logger != nil {
			for _, slot := range slots {
				if slot.Name == "base" {
					continue
				}
				loc := convlog.LocationSystemAppend
				if slot.Name == "prefix" {
					loc = convlog.LocationSystemPrompend
				}
				b.Logger.LogContextInjection(convlog.SourceProfile, loc, slot.Content, prof.Name, "", "")
			}
		}
	}

	ctx.SystemPrompt = assembled

	if b.Logger != nil {
		sum := sha256.Sum256([]byte(assembled))
		prefix := hex.EncodeToString(sum[:])[:16]
		b.Logger.LogContextReady(prefix)
	}

	return ctx, nil
}

// InjectSkillTrigger appends a triggered skill body to an already-built
// context (used mid-turn, after a /skill invocation), logging it as a
// skill_trigger injection.
func (b *Builder) InjectSkillTrigger(c *Context, skillName, body string) {
	c.SystemPrompt = strings.TrimRight(c.SystemPrompt, "\n") + "\n\n" + body
	if b.Logger != nil {
		b.Logger.LogContextInjection(convlog.SourceSkillTrigger, convlog.LocationMessageInject, body, skillName, "", "")
	}
}
