package profile

import "testing"

func TestResolveExactMatch(t *testing.T) {
	m := NewManager(nil, nil, map[string]*ModelProfile{
		"claude-sonnet-4-5": {Name: "claude-sonnet-4-5"},
	})
	p := m.Resolve("claude-sonnet-4-5", "anthropic")
	if p == nil || p.Name != "claude-sonnet-4-5" {
		t.Fatalf("expected exact match, got %+v", p)
	}
}

func TestResolveFamilyPrefixMatch(t *testing.T) {
	m := NewManager(nil, nil, map[string]*ModelProfile{
		"claude-family": {Name: "claude-family", Family: "claude"},
	})
	p := m.Resolve("claude-sonnet-4-5", "anthropic")
	if p == nil || p.Name != "claude-family" {
		t.Fatalf("expected family match, got %+v", p)
	}
}

func TestResolveLongestPrefixWins(t *testing.T) {
	m := NewManager(nil, nil, map[string]*ModelProfile{
		"short": {Name: "short", Family: "gpt"},
		"long":  {Name: "long", Family: "gpt-oss"},
	})
	p := m.Resolve("gpt-oss-120b", "openrouter")
	if p == nil || p.Name != "long" {
		t.Fatalf("expected longest-prefix family to win, got %+v", p)
	}
}

func TestResolveNormalizesProviderVariants(t *testing.T) {
	m := NewManager(nil, nil, map[string]*ModelProfile{
		"oss": {Name: "oss", Family: "gpt-oss"},
	})
	p := m.Resolve("openai/gpt-oss-120b", "openrouter")
	if p == nil || p.Name != "oss" {
		t.Fatalf("expected normalized match across provider prefix, got %+v", p)
	}
	p2 := m.Resolve("gpt-oss:120b", "ollama")
	if p2 == nil || p2.Name != "oss" {
		t.Fatalf("expected normalized match across colon variant, got %+v", p2)
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	m := NewManager(nil, nil, map[string]*ModelProfile{
		"default": {Name: "default"},
	})
	p := m.Resolve("unknown-model-xyz", "")
	if p == nil || p.Name != "default" {
		t.Fatalf("expected default fallback, got %+v", p)
	}
}

func TestResolveReturnsNilWhenNothingMatches(t *testing.T) {
	m := NewManager(nil, nil, map[string]*ModelProfile{})
	if p := m.Resolve("unknown", ""); p != nil {
		t.Errorf("expected nil, got %+v", p)
	}
}

func TestBuildSystemPromptConcatenatesInOrder(t *testing.T) {
	p := &ModelProfile{
		SystemPromptPrefix: "PREFIX ",
		SystemPromptSuffix: " SUFFIX",
		PromptPatterns:     map[string]string{"a": "A ", "b": "B "},
		EnabledPatterns:    []string{"a", "b"},
	}
	got, slots := p.BuildSystemPrompt("BASE")
	want := "PREFIX A B BASE SUFFIX"
	if got != want {
		t.Errorf("BuildSystemPrompt = %q, want %q", got, want)
	}
	if len(slots) != 4 {
		t.Errorf("expected 4 non-empty slots, got %d", len(slots))
	}
}

func TestUserProfileOutranksPluginAndBuiltin(t *testing.T) {
	m := NewManager(
		map[string]*ModelProfile{"foo": {Name: "foo", Description: "user"}},
		map[string]*ModelProfile{"foo": {Name: "foo", Description: "plugin"}},
		map[string]*ModelProfile{"foo": {Name: "foo", Description: "builtin"}},
	)
	p := m.GetProfile("foo")
	if p.Description != "user" {
		t.Errorf("expected user profile to win, got %q", p.Description)
	}
}
