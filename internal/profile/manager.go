package profile

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manager holds three maps in decreasing priority: user profiles, plugin
// profiles, and built-in profiles.
type Manager struct {
	user    map[string]*ModelProfile
	plugin  map[string]*ModelProfile
	builtin map[string]*ModelProfile
}

// NewManager builds a Manager from already-loaded profile sets.
func NewManager(user, plugin, builtin map[string]*ModelProfile) *Manager {
	if user == nil {
		user = map[string]*ModelProfile{}
	}
	if plugin == nil {
		plugin = map[string]*ModelProfile{}
	}
	if builtin == nil {
		builtin = map[string]*ModelProfile{}
	}
	return &Manager{user: user, plugin: plugin, builtin: builtin}
}

// LoadUserProfiles parses every *.yaml file under dir into ModelProfile
// values keyed by their declared name.
func LoadUserProfiles(dir string) (map[string]*ModelProfile, error) {
	out := map[string]*ModelProfile{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		var p ModelProfile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		if p.Name == "" {
			continue
		}
		out[p.Name] = &p
	}
	return out, nil
}

// GetProfile does an exact name lookup across user, plugin, built-in, in
// that priority order.
func (m *Manager) GetProfile(name string) *ModelProfile {
	if p, ok := m.user[name]; ok {
		return p
	}
	if p, ok := m.plugin[name]; ok {
		return p
	}
	if p, ok := m.builtin[name]; ok {
		return p
	}
	return nil
}

// normalizeModelName collapses provider-specific separator variants (e.g.
// "openai/gpt-oss-120b" vs "gpt-oss:120b") to a single comparable form.
func normalizeModelName(name string) string {
	name = strings.ToLower(name)
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ReplaceAll(name, ":", "-")
	return name
}

// Resolve tries, in order: exact model name, the longest-prefix family
// match against model (across all three maps, user first), then "default".
// Returns nil if neither matches nor a default profile exists.
func (m *Manager) Resolve(model, provider string) *ModelProfile {
	if p := m.GetProfile(model); p != nil {
		return p
	}

	normalizedModel := normalizeModelName(model)
	var best *ModelProfile
	bestLen := -1
	for _, set := range []map[string]*ModelProfile{m.user, m.plugin, m.builtin} {
		for _, p := range set {
			if p.Family == "" {
				continue
			}
			fam := normalizeModelName(p.Family)
			if strings.HasPrefix(normalizedModel, fam) && len(fam) > bestLen {
				best = p
				bestLen = len(fam)
			}
		}
	}
	if best != nil {
		return best
	}
	return m.GetProfile("default")
}

// Names returns every profile name known to this manager, sorted.
func (m *Manager) Names() []string {
	seen := map[string]bool{}
	for _, set := range []map[string]*ModelProfile{m.user, m.plugin, m.builtin} {
		for name := range set {
			seen[name] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
