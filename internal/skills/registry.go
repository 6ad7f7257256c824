package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/brynhild/brynhild/internal/logging"
)

// Registry aggregates skills from built-in, global, plugin, and project
// sources, with later sources overriding earlier ones by name.
type Registry struct {
	mu       sync.RWMutex
	skills   map[string]*Skill
	refCache map[string]string
	watcher  *fsnotify.Watcher
	logger   *logging.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		skills:   map[string]*Skill{},
		refCache: map[string]string{},
		logger:   logger.With("component", "skills"),
	}
}

// LoadDir walks dir for one level of subdirectories, loading any that
// contain SKILL.md, tagged with source. Later calls (higher-priority
// sources) override earlier ones by name.
func (r *Registry) LoadDir(dir string, source SourceType) []error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return []error{err}
	}
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		skillPath := filepath.Join(dir, entry.Name(), SkillFilename)
		if _, err := os.Stat(skillPath); err != nil {
			continue
		}
		if err := r.LoadSkill(skillPath, source); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// LoadPaths loads skills from an explicit name->directory map (used for
// plugin skill sources, where directory names aren't unique across
// plugins).
func (r *Registry) LoadPaths(paths map[string]string, source SourceType) []error {
	var errs []error
	for name, dir := range paths {
		skillPath := filepath.Join(dir, SkillFilename)
		if err := r.loadSkillAs(skillPath, name, source); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// LoadSkill parses and indexes one SKILL.md, keyed by its declared name.
func (r *Registry) LoadSkill(path string, source SourceType) error {
	s, overLimit, err := parseFile(path)
	if err != nil {
		return err
	}
	if overLimit {
		r.logger.Warn("skill body exceeds soft line limit", "skill", s.Name, "path", path)
	}
	s.Source = source
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.skills[s.Name]; !ok || source >= existing.Source {
		r.skills[s.Name] = s
	}
	return nil
}

func (r *Registry) loadSkillAs(path, name string, source SourceType) error {
	s, overLimit, err := parseFile(path)
	if err != nil {
		return err
	}
	if overLimit {
		r.logger.Warn("skill body exceeds soft line limit", "skill", name, "path", path)
	}
	s.Source = source
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.skills[name]; !ok || source >= existing.Source {
		r.skills[name] = s
	}
	return nil
}

func parseFile(path string) (*Skill, bool, error) {
	return ParseSkillFile(path)
}

// ListSkills returns every registered skill, including gated ones, sorted
// by name.
func (r *Registry) ListSkills() []*Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Skill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetSkill returns the skill named name, or nil.
func (r *Registry) GetSkill(name string) *Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.skills[name]
}

// GetMetadataForPrompt builds the level-1 catalog block: each ungated
// skill's name and description.
func (r *Registry) GetMetadataForPrompt() string {
	var b strings.Builder
	for _, s := range r.ListSkills() {
		if s.Gated() {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
	}
	return b.String()
}

// TriggerSkill returns the skill body wrapped for injection (level 2), or
// "", false if the skill is absent.
func (r *Registry) TriggerSkill(name string) (string, bool) {
	s := r.GetSkill(name)
	if s == nil {
		return "", false
	}
	content := ExpandBaseDir(s.Content, filepath.Dir(s.Path))
	return fmt.Sprintf("<skill name=%q>\n%s\n</skill>", s.Name, content), true
}

// GetReferenceFile reads and caches one reference file (level 3).
func (r *Registry) GetReferenceFile(skillName, file string) (string, error) {
	key := skillName + "/" + file
	r.mu.RLock()
	if cached, ok := r.refCache[key]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	s := r.GetSkill(skillName)
	if s == nil {
		return "", fmt.Errorf("skills: unknown skill %q", skillName)
	}
	path, err := safeJoin(s.ReferencesDir, file)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := string(data)
	r.mu.Lock()
	r.refCache[key] = content
	r.mu.Unlock()
	return content, nil
}

// GetScriptPath returns the absolute path to a script under the skill's
// scripts directory, rejecting traversal.
func (r *Registry) GetScriptPath(skillName, file string) (string, error) {
	s := r.GetSkill(skillName)
	if s == nil {
		return "", fmt.Errorf("skills: unknown skill %q", skillName)
	}
	return safeJoin(s.ScriptsDir, file)
}

func safeJoin(dir, file string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(dir, file))
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return "", err
	}
	if absPath != absDir && !strings.HasPrefix(absPath, absDir+string(filepath.Separator)) {
		return "", fmt.Errorf("skills: path traversal rejected for %q", file)
	}
	return absPath, nil
}

// Match is one weak keyword search hit.
type Match struct {
	Name  string
	Score int
}

// FindMatchingSkills performs a weak keyword search over names and
// descriptions, returning up to maxResults, highest score first.
func (r *Registry) FindMatchingSkills(text string, maxResults int) []Match {
	words := strings.Fields(strings.ToLower(text))
	var matches []Match
	for _, s := range r.ListSkills() {
		if s.Gated() {
			continue
		}
		haystack := strings.ToLower(s.Name + " " + s.Description)
		score := 0
		for _, w := range words {
			if len(w) < 3 {
				continue
			}
			if strings.Contains(haystack, w) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, Match{Name: s.Name, Score: score})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if maxResults > 0 && len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}

// WatchDirs starts an fsnotify watcher over the skill subdirectories
// present in dirs; when a SKILL.md in one of them is written or created,
// that file is re-parsed. The returned stop function
// must be called to release the watcher.
func (r *Registry) WatchDirs(dirs []string, source SourceType) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				_ = watcher.Add(filepath.Join(dir, entry.Name()))
			}
		}
	}
	r.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if filepath.Base(event.Name) != SkillFilename {
					continue
				}
				if err := r.LoadSkill(event.Name, source); err != nil {
					r.logger.Warn("failed to reload skill", "path", event.Name, "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("skill watcher error", "error", err)
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
