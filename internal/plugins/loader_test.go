package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brynhild/brynhild/pkg/pluginsdk"
)

func TestLoadCommandsParsesFrontmatterAndAliases(t *testing.T) {
	dir := t.TempDir()
	cmdDir := filepath.Join(dir, "commands")
	os.MkdirAll(cmdDir, 0o755)
	content := "---\nname: deploy\ndescription: Deploy the app\naliases: [d, dep]\n---\nRunning {{args}} in {{cwd}}\n"
	os.WriteFile(filepath.Join(cmdDir, "deploy.md"), []byte(content), 0o644)

	p := &Plugin{Path: dir, Manifest: &pluginsdk.Manifest{Name: "myplugin"}}
	cmds, err := LoadCommands(p)
	if err != nil {
		t.Fatalf("LoadCommands: %v", err)
	}
	if len(cmds) != 3 {
		t.Fatalf("expected 3 entries (name + 2 aliases), got %d", len(cmds))
	}
	if cmds["d"] != cmds["deploy"] {
		t.Errorf("expected alias to point to the same command")
	}
}

func TestLoadProfilesRaisesCollisionError(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	os.MkdirAll(filepath.Join(dirA, "profiles"), 0o755)
	os.MkdirAll(filepath.Join(dirB, "profiles"), 0o755)
	os.WriteFile(filepath.Join(dirA, "profiles", "foo.yaml"), []byte("name: foo\n"), 0o644)
	os.WriteFile(filepath.Join(dirB, "profiles", "foo.yaml"), []byte("name: foo\n"), 0o644)

	pluginA := &Plugin{Path: dirA, Manifest: &pluginsdk.Manifest{Name: "a"}}
	pluginB := &Plugin{Path: dirB, Manifest: &pluginsdk.Manifest{Name: "b"}}

	_, err := LoadProfiles([]*Plugin{pluginA, pluginB})
	if err == nil {
		t.Fatalf("expected collision error")
	}
}

func TestRenderCommandTemplateSubstitutesEnv(t *testing.T) {
	os.Setenv("BRYNHILD_TEST_VAR", "hello")
	defer os.Unsetenv("BRYNHILD_TEST_VAR")
	out := RenderCommandTemplate("val={{env.BRYNHILD_TEST_VAR}} missing={{env.BRYNHILD_MISSING}}", "", "", nil)
	if out != "val=hello missing=" {
		t.Errorf("RenderCommandTemplate = %q", out)
	}
}
