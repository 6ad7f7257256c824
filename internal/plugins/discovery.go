// Package plugins discovers, validates, and tracks the enabled/disabled
// state of plugins found across the search path.
package plugins

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brynhild/brynhild/pkg/pluginsdk"
)

// ErrPathTraversal is returned when a plugin path resolves outside its
// expected root after cleaning.
var ErrPathTraversal = errors.New("plugins: path traversal detected")

// ErrDuplicateName names a duplicate-plugin-name error. DiscoverManifests
// does not return it: a plugin found under a later path replaces an
// earlier one of the same name.
var ErrDuplicateName = errors.New("plugins: duplicate plugin name")

// SourceKind names where a discovered plugin came from.
type SourceKind string

const (
	SourceDirectory SourceKind = "directory"
)

// Plugin is one discovered, manifest-backed plugin.
type Plugin struct {
	Manifest *pluginsdk.Manifest
	Path     string
	Source   SourceKind
	Enabled  bool
}

// ValidatePluginPath cleans path and rejects it if cleaning reveals a
// traversal attempt relative to root.
func ValidatePluginPath(root, path string) (string, error) {
	cleaned := filepath.Clean(path)
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) && absPath != absRoot {
		return "", ErrPathTraversal
	}
	return absPath, nil
}

var (
	manifestCacheMu  sync.Mutex
	manifestCache    = map[string]manifestCacheEntry{}
	defaultCacheTTL  = 2 * time.Second
)

type manifestCacheEntry struct {
	expires time.Time
	plugins []*Plugin
}

func cacheTTL() time.Duration {
	if v := os.Getenv("BRYNHILD_PLUGIN_MANIFEST_CACHE_MS"); v != "" {
		var ms int
		if _, err := fmt.Sscanf(v, "%d", &ms); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultCacheTTL
}

func cacheDisabled() bool {
	v := strings.ToLower(os.Getenv("BRYNHILD_DISABLE_PLUGIN_MANIFEST_CACHE"))
	return v == "1" || v == "true" || v == "yes"
}

// DiscoverManifests walks every directory in paths looking for
// <dir>/*/plugin.yaml. Invalid manifests or unreadable directories are
// skipped with the returned warnings; discovery as a whole never fails.
// Later paths override earlier ones by plugin name.
func DiscoverManifests(paths []string) ([]*Plugin, []string) {
	normalized := normalizePaths(paths)
	cacheKey := strings.Join(normalized, ":")

	if !cacheDisabled() {
		manifestCacheMu.Lock()
		if entry, ok := manifestCache[cacheKey]; ok && time.Now().Before(entry.expires) {
			cloned := append([]*Plugin{}, entry.plugins...)
			manifestCacheMu.Unlock()
			return cloned, nil
		}
		manifestCacheMu.Unlock()
	}

	byName := map[string]*Plugin{}
	var warnings []string

	for _, root := range normalized {
		entries, err := os.ReadDir(root)
		if err != nil {
			if !os.IsNotExist(err) {
				warnings = append(warnings, fmt.Sprintf("%s: %v", root, err))
			}
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			pluginDir := filepath.Join(root, entry.Name())
			manifestPath := filepath.Join(pluginDir, pluginsdk.ManifestFilename)
			data, err := os.ReadFile(manifestPath)
			if err != nil {
				continue // no manifest in this directory; not an error
			}
			manifest, err := pluginsdk.DecodeManifest(data)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %v", manifestPath, err))
				continue
			}
			if manifest.Name != entry.Name() {
				warnings = append(warnings, fmt.Sprintf("%s: manifest name %q does not match directory %q", manifestPath, manifest.Name, entry.Name()))
				continue
			}
			byName[manifest.Name] = &Plugin{
				Manifest: manifest,
				Path:     pluginDir,
				Source:   SourceDirectory,
				Enabled:  true,
			}
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Plugin, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}

	if !cacheDisabled() {
		manifestCacheMu.Lock()
		manifestCache[cacheKey] = manifestCacheEntry{expires: time.Now().Add(cacheTTL()), plugins: out}
		manifestCacheMu.Unlock()
	}

	return out, warnings
}

func normalizePaths(paths []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}
	return out
}

// SearchPaths builds the discovery source list in priority order (later
// overrides earlier by name): global, BRYNHILD_PLUGIN_PATH entries,
// project.
func SearchPaths(home, projectRoot, pluginPathEnv string) []string {
	var paths []string
	paths = append(paths, filepath.Join(home, ".config", "brynhild", "plugins"))
	for _, p := range strings.Split(pluginPathEnv, ":") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	if projectRoot != "" {
		paths = append(paths, filepath.Join(projectRoot, ".brynhild", "plugins"))
	}
	return paths
}
