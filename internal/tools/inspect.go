package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/brynhild/brynhild/pkg/models"
)

// InspectTool answers read-only questions about the project directory
// (cwd, listing, existence, stat) without requiring permission.
type InspectTool struct{ Root string }

func (t *InspectTool) Name() string            { return "inspect" }
func (t *InspectTool) Description() string     { return "Inspect the project directory: cwd, ls, stat, or exists." }
func (t *InspectTool) RequiresPermission() bool { return false }
func (t *InspectTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{"type": "string", "enum": []any{"cwd", "ls", "stat", "exists"}},
			"path":   map[string]any{"type": "string"},
		},
		"required":             []any{"action"},
		"additionalProperties": false,
	}
}

func (t *InspectTool) Execute(ctx context.Context, raw json.RawMessage) (models.ToolResult, error) {
	var in struct {
		Action string `json:"action"`
		Path   string `json:"path"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return models.Failed(err.Error()), nil
	}

	switch in.Action {
	case "cwd":
		return models.Ok(t.Root), nil

	case "ls":
		target := t.Root
		if in.Path != "" {
			abs, err := sandboxPath(t.Root, in.Path)
			if err != nil {
				return models.Failed(err.Error()), nil
			}
			target = abs
		}
		entries, err := os.ReadDir(target)
		if err != nil {
			return models.Failed(err.Error()), nil
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
		return models.Ok(strings.Join(names, "\n")), nil

	case "exists":
		abs, err := sandboxPath(t.Root, in.Path)
		if err != nil {
			return models.Failed(err.Error()), nil
		}
		_, statErr := os.Stat(abs)
		return models.Ok(fmt.Sprintf("%t", statErr == nil)), nil

	case "stat":
		abs, err := sandboxPath(t.Root, in.Path)
		if err != nil {
			return models.Failed(err.Error()), nil
		}
		info, err := os.Stat(abs)
		if err != nil {
			return models.Failed(err.Error()), nil
		}
		return models.Ok(fmt.Sprintf("size=%d mode=%s modtime=%s is_dir=%t",
			info.Size(), info.Mode(), info.ModTime().UTC().Format("2006-01-02T15:04:05Z"), info.IsDir())), nil

	default:
		return models.Failed(fmt.Sprintf("unknown action %q", in.Action)), nil
	}
}
