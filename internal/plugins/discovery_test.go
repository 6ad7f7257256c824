package plugins

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, name string) {
	t.Helper()
	pluginDir := filepath.Join(dir, name)
	if err := os.MkdirAll(pluginDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := "name: " + name + "\nversion: \"1.0.0\"\n"
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestDiscoverManifestsFindsValidPlugins(t *testing.T) {
	os.Setenv("BRYNHILD_DISABLE_PLUGIN_MANIFEST_CACHE", "1")
	defer os.Unsetenv("BRYNHILD_DISABLE_PLUGIN_MANIFEST_CACHE")

	dir := t.TempDir()
	writeManifest(t, dir, "alpha")
	writeManifest(t, dir, "beta")

	found, warnings := DiscoverManifests([]string{dir})
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(found))
	}
}

func TestDiscoverManifestsSkipsNameMismatch(t *testing.T) {
	os.Setenv("BRYNHILD_DISABLE_PLUGIN_MANIFEST_CACHE", "1")
	defer os.Unsetenv("BRYNHILD_DISABLE_PLUGIN_MANIFEST_CACHE")

	dir := t.TempDir()
	pluginDir := filepath.Join(dir, "wrongname")
	os.MkdirAll(pluginDir, 0o755)
	os.WriteFile(filepath.Join(pluginDir, "plugin.yaml"), []byte("name: actualname\nversion: \"1.0.0\"\n"), 0o644)

	found, warnings := DiscoverManifests([]string{dir})
	if len(found) != 0 {
		t.Errorf("expected mismatched manifest to be skipped, found %d", len(found))
	}
	if len(warnings) != 1 {
		t.Errorf("expected 1 warning, got %d: %v", len(warnings), warnings)
	}
}

func TestValidatePluginPathRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	if _, err := ValidatePluginPath(root, filepath.Join(root, "..", "etc", "passwd")); err != ErrPathTraversal {
		t.Errorf("expected ErrPathTraversal, got %v", err)
	}
	if _, err := ValidatePluginPath(root, filepath.Join(root, "myplugin")); err != nil {
		t.Errorf("expected valid subpath to pass, got %v", err)
	}
}

func TestRegistryDisableEnablePersists(t *testing.T) {
	dir := t.TempDir()
	r, err := OpenRegistry(dir)
	if err != nil {
		t.Fatalf("OpenRegistry: %v", err)
	}
	if !r.IsEnabled("alpha") {
		t.Fatalf("expected alpha enabled by default")
	}
	if err := r.Disable("alpha"); err != nil {
		t.Fatalf("Disable: %v", err)
	}

	r2, err := OpenRegistry(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if r2.IsEnabled("alpha") {
		t.Errorf("expected alpha to remain disabled after reopen")
	}
}
