package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brynhild/brynhild/pkg/models"
)

// sandboxPath resolves a user-supplied relative or absolute path against
// root, rejecting anything that escapes it.
func sandboxPath(root, path string) (string, error) {
	var joined string
	if filepath.IsAbs(path) {
		joined = filepath.Clean(path)
	} else {
		joined = filepath.Clean(filepath.Join(root, path))
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}
	if absJoined != absRoot && !strings.HasPrefix(absJoined, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the project root", path)
	}
	return absJoined, nil
}

// FileReadTool reads a file within the project root.
type FileReadTool struct{ Root string }

func (t *FileReadTool) Name() string        { return "file_read" }
func (t *FileReadTool) Description() string { return "Read a file's contents." }
func (t *FileReadTool) RequiresPermission() bool { return false }
func (t *FileReadTool) InputSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"path": map[string]any{"type": "string"}},
		"required":             []any{"path"},
		"additionalProperties": false,
	}
}

func (t *FileReadTool) Execute(ctx context.Context, raw json.RawMessage) (models.ToolResult, error) {
	var in struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return models.Failed(err.Error()), nil
	}
	abs, err := sandboxPath(t.Root, in.Path)
	if err != nil {
		return models.Failed(err.Error()), nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.Failed(err.Error()), nil
	}
	return models.Ok(string(data)), nil
}

// FileWriteTool writes (creating or truncating) a file within the
// project root.
type FileWriteTool struct{ Root string }

func (t *FileWriteTool) Name() string            { return "file_write" }
func (t *FileWriteTool) Description() string     { return "Write content to a file, creating parent directories as needed." }
func (t *FileWriteTool) RequiresPermission() bool { return true }
func (t *FileWriteTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":    map[string]any{"type": "string"},
			"content": map[string]any{"type": "string"},
		},
		"required":             []any{"path", "content"},
		"additionalProperties": false,
	}
}

func (t *FileWriteTool) Execute(ctx context.Context, raw json.RawMessage) (models.ToolResult, error) {
	var in struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return models.Failed(err.Error()), nil
	}
	abs, err := sandboxPath(t.Root, in.Path)
	if err != nil {
		return models.Failed(err.Error()), nil
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return models.Failed(err.Error()), nil
	}
	if err := os.WriteFile(abs, []byte(in.Content), 0o644); err != nil {
		return models.Failed(err.Error()), nil
	}
	return models.Ok(fmt.Sprintf("wrote %d bytes to %s", len(in.Content), in.Path)), nil
}

// FileEditTool performs an exact string replacement within a file,
// requiring old_string to match exactly once unless replace_all is set.
type FileEditTool struct{ Root string }

func (t *FileEditTool) Name() string            { return "file_edit" }
func (t *FileEditTool) Description() string     { return "Replace an exact string within a file." }
func (t *FileEditTool) RequiresPermission() bool { return true }
func (t *FileEditTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":        map[string]any{"type": "string"},
			"old_string":  map[string]any{"type": "string"},
			"new_string":  map[string]any{"type": "string"},
			"replace_all": map[string]any{"type": "boolean"},
		},
		"required":             []any{"path", "old_string", "new_string"},
		"additionalProperties": false,
	}
}

func (t *FileEditTool) Execute(ctx context.Context, raw json.RawMessage) (models.ToolResult, error) {
	var in struct {
		Path       string `json:"path"`
		OldString  string `json:"old_string"`
		NewString  string `json:"new_string"`
		ReplaceAll bool   `json:"replace_all"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return models.Failed(err.Error()), nil
	}
	abs, err := sandboxPath(t.Root, in.Path)
	if err != nil {
		return models.Failed(err.Error()), nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.Failed(err.Error()), nil
	}
	content := string(data)
	count := strings.Count(content, in.OldString)
	if count == 0 {
		return models.Failed("old_string not found in file"), nil
	}
	if count > 1 && !in.ReplaceAll {
		return models.Failed(fmt.Sprintf("old_string matches %d times; pass replace_all or a more specific match", count)), nil
	}
	var updated string
	if in.ReplaceAll {
		updated = strings.ReplaceAll(content, in.OldString, in.NewString)
	} else {
		updated = strings.Replace(content, in.OldString, in.NewString, 1)
	}
	if err := os.WriteFile(abs, []byte(updated), 0o644); err != nil {
		return models.Failed(err.Error()), nil
	}
	return models.Ok(fmt.Sprintf("replaced %d occurrence(s) in %s", count, in.Path)), nil
}
