package skills

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSkill(t *testing.T, dir, name, body string, gated bool) {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatal(err)
	}
	requires := ""
	if gated {
		requires = "metadata:\n  requires:\n    bins: [\"definitely-not-a-real-binary-xyz\"]\n"
	}
	content := "---\nname: " + name + "\ndescription: test skill " + name + "\n" + requires + "---\n" + body + "\n"
	if err := os.WriteFile(filepath.Join(skillDir, SkillFilename), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRegistryLoadListAndGet(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "deploy-helper", "Deploy body content.", false)

	r := NewRegistry(nil)
	if errs := r.LoadDir(dir, SourceProject); len(errs) != 0 {
		t.Fatalf("LoadDir errors: %v", errs)
	}
	if len(r.ListSkills()) != 1 {
		t.Fatalf("expected 1 skill, got %d", len(r.ListSkills()))
	}
	if r.GetSkill("deploy-helper") == nil {
		t.Fatalf("expected to find deploy-helper")
	}
}

func TestRegistryProjectOverridesBuiltin(t *testing.T) {
	builtinDir := t.TempDir()
	projectDir := t.TempDir()
	writeSkill(t, builtinDir, "shared", "builtin body", false)
	writeSkill(t, projectDir, "shared", "project body", false)

	r := NewRegistry(nil)
	r.LoadDir(builtinDir, SourceBuiltin)
	r.LoadDir(projectDir, SourceProject)

	s := r.GetSkill("shared")
	if s.Content != "project body" {
		t.Errorf("expected project source to override builtin, got %q", s.Content)
	}
}

func TestGetMetadataForPromptExcludesGated(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "open-skill", "body", false)
	writeSkill(t, dir, "gated-skill", "body", true)

	r := NewRegistry(nil)
	r.LoadDir(dir, SourceProject)

	meta := r.GetMetadataForPrompt()
	if !contains(meta, "open-skill") {
		t.Errorf("expected open-skill in metadata: %q", meta)
	}
	if contains(meta, "gated-skill") {
		t.Errorf("expected gated-skill excluded from metadata: %q", meta)
	}
}

func TestTriggerSkillWrapsBody(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "wrapme", "the body text", false)

	r := NewRegistry(nil)
	r.LoadDir(dir, SourceProject)

	out, ok := r.TriggerSkill("wrapme")
	if !ok {
		t.Fatal("expected skill found")
	}
	if !contains(out, `<skill name="wrapme">`) || !contains(out, "the body text") || !contains(out, "</skill>") {
		t.Errorf("unexpected wrapped output: %q", out)
	}
}

func TestFindMatchingSkillsRanksByScore(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "deploy-app", "deploy kubernetes deploy release body", false)
	writeSkill(t, dir, "unrelated", "nothing to see here", false)

	r := NewRegistry(nil)
	r.LoadDir(dir, SourceProject)

	matches := r.FindMatchingSkills("please deploy release now", 5)
	if len(matches) == 0 || matches[0].Name != "deploy-app" {
		t.Fatalf("expected deploy-app top match, got %+v", matches)
	}
}

func TestPreprocessRewritesInvocation(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "greet", "Say hello.", false)

	r := NewRegistry(nil)
	r.LoadDir(dir, SourceProject)

	rewritten, injected, matched, err := r.Preprocess("/skill greet please help with the task")
	if err != nil {
		t.Fatalf("Preprocess error: %v", err)
	}
	if !matched {
		t.Fatal("expected match")
	}
	if rewritten != "please help with the task" {
		t.Errorf("rewritten = %q", rewritten)
	}
	if !contains(injected, "Say hello.") {
		t.Errorf("injected missing body: %q", injected)
	}
}

func TestPreprocessUnknownSkillErrors(t *testing.T) {
	r := NewRegistry(nil)
	_, _, matched, err := r.Preprocess("/skill nonexistent do something")
	if !matched {
		t.Fatal("expected matched=true even on unknown skill")
	}
	if err == nil {
		t.Fatal("expected error for unknown skill")
	}
}

func TestPreprocessPassesThroughNonInvocation(t *testing.T) {
	r := NewRegistry(nil)
	rewritten, _, matched, err := r.Preprocess("just a normal message")
	if err != nil || matched {
		t.Fatalf("expected no match, got matched=%v err=%v", matched, err)
	}
	if rewritten != "just a normal message" {
		t.Errorf("rewritten = %q", rewritten)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
