package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brynhild/brynhild/internal/skills"
	"github.com/brynhild/brynhild/pkg/models"
)

// LearnSkillTool lets the model pull a skill's full body into context
// on demand (progressive disclosure level 2), without requiring
// permission since it only reads already-discovered local content.
type LearnSkillTool struct {
	Registry *skills.Registry
}

func (t *LearnSkillTool) Name() string            { return "learn_skill" }
func (t *LearnSkillTool) Description() string     { return "Load the full body of a named skill into context." }
func (t *LearnSkillTool) RequiresPermission() bool { return false }
func (t *LearnSkillTool) InputSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"name": map[string]any{"type": "string"}},
		"required":             []any{"name"},
		"additionalProperties": false,
	}
}

func (t *LearnSkillTool) Execute(ctx context.Context, raw json.RawMessage) (models.ToolResult, error) {
	var in struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return models.Failed(err.Error()), nil
	}
	body, ok := t.Registry.TriggerSkill(in.Name)
	if !ok {
		return models.Failed(fmt.Sprintf("unknown skill %q", in.Name)), nil
	}
	return models.Ok(body), nil
}
