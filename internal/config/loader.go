package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.yaml
var builtinDefaults embed.FS

// Error is a loader error naming the layer that failed, matching the
// "fail loudly and name the layer" requirement.
type Error struct {
	Layer string
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("config: %s: %v", e.Layer, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// ErrRootTooBroad is returned when the discovered project root resolves to
// the filesystem root or the user's home directory and AllowHomeDirectory
// is false.
var ErrRootTooBroad = fmt.Errorf("config: project root too broad")

// LoadOptions controls ConfigLoader.Load.
type LoadOptions struct {
	// StartDir is where project-root discovery begins; defaults to cwd.
	StartDir string
	// AllowHomeDirectory permits the home directory itself as a project
	// root when no other boundary is found.
	AllowHomeDirectory bool
	// Environ provides the process environment; defaults to os.Environ().
	Environ []string
	// HomeDir overrides the user home directory (for tests).
	HomeDir string
}

const envPrefix = "BRYNHILD_"

// Load assembles a DeepChainMap from, highest priority first: environment
// overrides, project config, user config, deployment config, site config,
// built-in defaults.
func Load(opts LoadOptions) (*DeepChainMap, error) {
	home := opts.HomeDir
	if home == "" {
		h, err := os.UserHomeDir()
		if err == nil {
			home = h
		}
	}
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}

	envMap := map[string]string{}
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			envMap[kv[:i]] = kv[i+1:]
		}
	}

	builtin, err := loadBuiltinDefaults()
	if err != nil {
		return nil, &Error{Layer: "built-in defaults", Err: err}
	}

	site, err := loadOptionalPathLayer(envMap["BRYNHILD_SITE_CONFIG"], "site.yaml", environ, home)
	if err != nil {
		return nil, &Error{Layer: "site config", Err: err}
	}

	deployment, err := loadOptionalPathLayer(envMap["BRYNHILD_DEPLOYMENT_CONFIG"], "deployment.yaml", environ, home)
	if err != nil {
		return nil, &Error{Layer: "deployment config", Err: err}
	}

	userCfgPath := filepath.Join(home, ".config", "brynhild", "config.yaml")
	user, err := loadOptionalFile(userCfgPath)
	if err != nil {
		return nil, &Error{Layer: "user config", Err: err}
	}

	root, err := findProjectRoot(startDirOrCwd(opts.StartDir), home, opts.AllowHomeDirectory)
	if err != nil {
		return nil, err
	}
	var project map[string]any
	if root != "" {
		project, err = loadOptionalFile(filepath.Join(root, ".brynhild", "config.yaml"))
		if err != nil {
			return nil, &Error{Layer: "project config", Err: err}
		}
	}

	// Priority order, highest first (L0..L4): project, user, deployment,
	// site, built-in.
	dcm := New(project, user, deployment, site, builtin)
	dcm.SetEnvOverride(envOverrides(environ))
	return dcm, nil
}

func startDirOrCwd(start string) string {
	if start != "" {
		return start
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// findProjectRoot walks up from start looking for pyproject.toml, setup.py,
// .git, or .brynhild/.
func findProjectRoot(start, home string, allowHome bool) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", &Error{Layer: "project root", Err: err}
	}
	for {
		for _, marker := range []string{"pyproject.toml", "setup.py", ".git", ".brynhild"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return checkRootBreadth(dir, home, allowHome)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func checkRootBreadth(root, home string, allowHome bool) (string, error) {
	if allowHome {
		return root, nil
	}
	cleanRoot := filepath.Clean(root)
	if cleanRoot == filepath.Clean(home) || cleanRoot == string(filepath.Separator) {
		return "", ErrRootTooBroad
	}
	return root, nil
}

func loadOptionalFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadOptionalPathLayer resolves rawPath (the value of a path env var),
// which may name a direct file or a directory containing defaultFilename,
// expanding ~ and $VARS first.
func loadOptionalPathLayer(rawPath, defaultFilename string, environ []string, home string) (map[string]any, error) {
	if rawPath == "" {
		return nil, nil
	}
	expanded := expandPath(rawPath, environ, home)
	info, err := os.Stat(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	path := expanded
	if info.IsDir() {
		path = filepath.Join(expanded, defaultFilename)
	}
	return loadOptionalFile(path)
}

func expandPath(path string, environ []string, home string) string {
	if strings.HasPrefix(path, "~") {
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	env := map[string]string{}
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return os.Expand(path, func(name string) string { return env[name] })
}

// envOverrides scans environ for BRYNHILD_<SECTION>__<KEY>[__<KEY>...]
// variables and builds the nested map they describe.
func envOverrides(environ []string) map[string]any {
	out := map[string]any{}
	for _, kv := range environ {
		i := strings.IndexByte(kv, '=')
		if i < 0 {
			continue
		}
		key, val := kv[:i], kv[i+1:]
		if !strings.HasPrefix(key, envPrefix) {
			continue
		}
		rest := strings.TrimPrefix(key, envPrefix)
		if rest == "" || !strings.Contains(rest, "__") {
			continue
		}
		parts := strings.Split(rest, "__")
		lowered := make([]string, len(parts))
		for i, p := range parts {
			lowered[i] = strings.ToLower(p)
		}
		setNested(out, lowered, val)
	}
	return out
}

func loadBuiltinDefaults() (map[string]any, error) {
	entries, err := builtinDefaults.ReadDir("defaults")
	if err != nil {
		return nil, err
	}
	merged := map[string]any{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := builtinDefaults.ReadFile(filepath.Join("defaults", entry.Name()))
		if err != nil {
			return nil, err
		}
		var layer map[string]any
		if err := yaml.Unmarshal(data, &layer); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		for k, v := range layer {
			merged[k] = v
		}
	}
	return merged, nil
}

// Decode decodes the DeepChainMap's merged view into out (a pointer to a
// typed config struct), via mapstructure over ToDict's plain map.
func Decode(dcm *DeepChainMap, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "yaml",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(dcm.ToDict())
}
