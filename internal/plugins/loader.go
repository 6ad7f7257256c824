package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brynhild/brynhild/internal/profile"
)

// Command is one parsed entry under <plugin>/commands/*.md.
type Command struct {
	Name        string
	Description string
	Aliases     []string
	Args        []string
	Template    string
	Plugin      string
}

type commandFrontmatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Aliases     []string `yaml:"aliases,omitempty"`
	Args        []string `yaml:"args,omitempty"`
}

// LoadCommands parses every *.md file under <plugin>/commands/ into
// Command entries, one per alias.
func LoadCommands(p *Plugin) (map[string]*Command, error) {
	out := map[string]*Command{}
	dir := filepath.Join(p.Path, "commands")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		front, body, err := splitFrontmatter(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		var fm commandFrontmatter
		if err := yaml.Unmarshal(front, &fm); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		if fm.Name == "" || len(fm.Name) > 64 {
			return nil, fmt.Errorf("%s: command name must be 1-64 chars", entry.Name())
		}
		cmd := &Command{
			Name: fm.Name, Description: fm.Description, Aliases: fm.Aliases,
			Args: fm.Args, Template: body, Plugin: p.Manifest.Name,
		}
		out[fm.Name] = cmd
		for _, alias := range fm.Aliases {
			out[alias] = cmd
		}
	}
	return out, nil
}

// splitFrontmatter separates a leading "---\n...\n---\n" YAML block from
// the remaining markdown body.
func splitFrontmatter(data []byte) (frontmatter, body []byte, err error) {
	text := string(data)
	const delim = "---"
	if !strings.HasPrefix(strings.TrimLeft(text, "\n"), delim) {
		return nil, nil, fmt.Errorf("missing frontmatter delimiter")
	}
	text = strings.TrimLeft(text, "\n")
	text = strings.TrimPrefix(text, delim)
	idx := strings.Index(text, "\n"+delim)
	if idx < 0 {
		return nil, nil, fmt.Errorf("unterminated frontmatter")
	}
	front := text[:idx]
	rest := text[idx+len("\n"+delim):]
	rest = strings.TrimPrefix(rest, "\n")
	return []byte(front), []byte(rest), nil
}

// RenderCommandTemplate substitutes {{args}}, {{cwd}}, {{env.VAR}}
// (missing env vars become empty), and caller-provided vars.
func RenderCommandTemplate(tmpl, args, cwd string, vars map[string]string) string {
	out := tmpl
	out = strings.ReplaceAll(out, "{{args}}", args)
	out = strings.ReplaceAll(out, "{{cwd}}", cwd)
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	for {
		start := strings.Index(out, "{{env.")
		if start < 0 {
			break
		}
		end := strings.Index(out[start:], "}}")
		if end < 0 {
			break
		}
		end += start
		name := out[start+len("{{env.") : end]
		out = out[:start] + os.Getenv(name) + out[end+2:]
	}
	return out
}

// LoadProfiles parses <plugin>/profiles/*.yaml for every enabled plugin
// and returns the merged set, raising a *profile.CollisionError if two
// enabled plugins provide the same profile name.
func LoadProfiles(enabled []*Plugin) (map[string]*profile.ModelProfile, error) {
	out := map[string]*profile.ModelProfile{}
	owner := map[string]string{}

	for _, p := range enabled {
		dir := filepath.Join(p.Path, "profiles")
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
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
			var mp profile.ModelProfile
			if err := yaml.Unmarshal(data, &mp); err != nil {
				return nil, fmt.Errorf("%s: %w", entry.Name(), err)
			}
			if mp.Name == "" {
				continue
			}
			if firstOwner, exists := owner[mp.Name]; exists && firstOwner != p.Manifest.Name {
				return nil, &profile.CollisionError{Name: mp.Name, Plugins: []string{firstOwner, p.Manifest.Name}}
			}
			owner[mp.Name] = p.Manifest.Name
			out[mp.Name] = &mp
		}
	}
	return out, nil
}

// GetPluginSkillPaths returns every <plugin>/skills/<name> directory that
// contains a SKILL.md, across all enabled plugins.
func GetPluginSkillPaths(enabled []*Plugin) map[string]string {
	out := map[string]string{}
	for _, p := range enabled {
		dir := filepath.Join(p.Path, "skills")
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			skillDir := filepath.Join(dir, entry.Name())
			if _, err := os.Stat(filepath.Join(skillDir, "SKILL.md")); err == nil {
				out["plugin:"+p.Manifest.Name+"/"+entry.Name()] = skillDir
			}
		}
	}
	return out
}

// HooksManifestPath returns <plugin>/hooks.yaml if the plugin declares
// hooks support, else "".
func HooksManifestPath(p *Plugin) string {
	if !p.Manifest.Hooks {
		return ""
	}
	return filepath.Join(p.Path, "hooks.yaml")
}
