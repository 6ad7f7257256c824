package plugins

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// registryState is the persisted ~/.config/brynhild/plugins.yaml overlay.
type registryState struct {
	Disabled []string `yaml:"disabled"`
}

// Registry applies the enable/disable overlay to a discovered plugin set.
// State is persisted on every change.
type Registry struct {
	path     string
	disabled map[string]bool
}

// OpenRegistry loads (or initializes) the registry state file at
// <configDir>/plugins.yaml.
func OpenRegistry(configDir string) (*Registry, error) {
	path := filepath.Join(configDir, "plugins.yaml")
	r := &Registry{path: path, disabled: map[string]bool{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, err
	}
	var state registryState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	for _, name := range state.Disabled {
		r.disabled[name] = true
	}
	return r, nil
}

func (r *Registry) persist() error {
	names := make([]string, 0, len(r.disabled))
	for name := range r.disabled {
		names = append(names, name)
	}
	data, err := yaml.Marshal(registryState{Disabled: names})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o644)
}

// Enable marks name enabled and persists.
func (r *Registry) Enable(name string) error {
	delete(r.disabled, name)
	return r.persist()
}

// Disable marks name disabled and persists.
func (r *Registry) Disable(name string) error {
	r.disabled[name] = true
	return r.persist()
}

// IsEnabled reports whether name is currently enabled.
func (r *Registry) IsEnabled(name string) bool {
	return !r.disabled[name]
}

// GetEnabledPlugins filters discovered to only those not disabled,
// applying the overlay state to each Plugin's Enabled field.
func (r *Registry) GetEnabledPlugins(discovered []*Plugin) []*Plugin {
	out := make([]*Plugin, 0, len(discovered))
	for _, p := range discovered {
		p.Enabled = !r.disabled[p.Manifest.Name]
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}
