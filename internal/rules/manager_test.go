package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConcatenatesParentToLeaf(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	os.MkdirAll(sub, 0o755)
	os.WriteFile(filepath.Join(root, "AGENTS.md"), []byte("root rules"), 0o644)
	os.WriteFile(filepath.Join(sub, "AGENTS.md"), []byte("sub rules"), 0o644)

	m := NewManager(sub, root, "")
	content, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rootIdx := indexOf(content, "root rules")
	subIdx := indexOf(content, "sub rules")
	if rootIdx < 0 || subIdx < 0 || rootIdx > subIdx {
		t.Errorf("expected root rules before sub rules, got %q", content)
	}
}

func TestLoadCachesUntilForceReload(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "AGENTS.md")
	os.WriteFile(path, []byte("v1"), 0o644)

	m := NewManager(root, root, "")
	first, _ := m.Load()
	if first != "v1" {
		t.Fatalf("first = %q", first)
	}

	os.WriteFile(path, []byte("v2"), 0o644)
	cached, _ := m.Load()
	if cached != "v1" {
		t.Errorf("expected cached value, got %q", cached)
	}

	reloaded, _ := m.ForceReload()
	if reloaded != "v2" {
		t.Errorf("expected reloaded value v2, got %q", reloaded)
	}
}

func TestGlobalRulesLoadFirst(t *testing.T) {
	root := t.TempDir()
	global := t.TempDir()
	os.WriteFile(filepath.Join(global, "a.md"), []byte("global rules"), 0o644)
	os.WriteFile(filepath.Join(root, "AGENTS.md"), []byte("project rules"), 0o644)

	m := NewManager(root, root, global)
	content, _ := m.Load()
	if indexOf(content, "global rules") > indexOf(content, "project rules") {
		t.Errorf("expected global rules first, got %q", content)
	}
}

func TestWrapEmptyReturnsEmpty(t *testing.T) {
	if Wrap("") != "" {
		t.Errorf("expected empty wrap for empty content")
	}
}

func TestWrapWrapsInTag(t *testing.T) {
	out := Wrap("hello")
	if out != "<project_rules>\nhello\n</project_rules>" {
		t.Errorf("unexpected wrap: %q", out)
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
