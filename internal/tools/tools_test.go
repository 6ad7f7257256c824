package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBashToolRunsCommand(t *testing.T) {
	bt := NewBashTool(t.TempDir(), 5*time.Second)
	in, _ := json.Marshal(map[string]any{"command": "echo hello"})
	res, err := bt.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success || res.Output != "hello\n" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestBashToolTimesOut(t *testing.T) {
	bt := NewBashTool(t.TempDir(), 100*time.Millisecond)
	in, _ := json.Marshal(map[string]any{"command": "sleep 2"})
	res, err := bt.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Errorf("expected timeout failure, got success")
	}
}

func TestBashToolFiltersDeniedEnv(t *testing.T) {
	os.Setenv("PATH_API_KEY_TEST", "sekrit")
	defer os.Unsetenv("PATH_API_KEY_TEST")

	bt := NewBashTool(t.TempDir(), 5*time.Second)
	bt.AllowEnv = append(bt.AllowEnv, "PATH_API_KEY_TEST")

	in, _ := json.Marshal(map[string]any{"command": "echo $PATH_API_KEY_TEST"})
	res, _ := bt.Execute(context.Background(), in)
	if res.Output != "\n" {
		t.Errorf("expected denied env var to be absent, got %q", res.Output)
	}
}

func TestFileToolsSandboxing(t *testing.T) {
	root := t.TempDir()
	write := &FileWriteTool{Root: root}
	in, _ := json.Marshal(map[string]any{"path": "a.txt", "content": "hello"})
	res, _ := write.Execute(context.Background(), in)
	if !res.Success {
		t.Fatalf("write failed: %+v", res)
	}

	read := &FileReadTool{Root: root}
	in2, _ := json.Marshal(map[string]any{"path": "a.txt"})
	res2, _ := read.Execute(context.Background(), in2)
	if res2.Output != "hello" {
		t.Errorf("read = %q", res2.Output)
	}

	escapeIn, _ := json.Marshal(map[string]any{"path": "../../etc/passwd"})
	res3, _ := read.Execute(context.Background(), escapeIn)
	if res3.Success {
		t.Errorf("expected traversal rejection")
	}
}

func TestFileEditRequiresUniqueMatch(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "b.txt")
	os.WriteFile(path, []byte("foo foo bar"), 0o644)

	edit := &FileEditTool{Root: root}
	in, _ := json.Marshal(map[string]any{"path": "b.txt", "old_string": "foo", "new_string": "baz"})
	res, _ := edit.Execute(context.Background(), in)
	if res.Success {
		t.Errorf("expected ambiguous match rejection")
	}

	in2, _ := json.Marshal(map[string]any{"path": "b.txt", "old_string": "foo", "new_string": "baz", "replace_all": true})
	res2, _ := edit.Execute(context.Background(), in2)
	if !res2.Success {
		t.Fatalf("replace_all should succeed: %+v", res2)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "baz baz bar" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestRegistryValidatesSchema(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&InspectTool{Root: t.TempDir()}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	bad, _ := json.Marshal(map[string]any{"action": "not-an-allowed-action"})
	res, err := r.Execute(context.Background(), "inspect", bad)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Errorf("expected schema validation failure for invalid enum value")
	}
}
