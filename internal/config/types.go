package config

// Config is the typed projection of the merged DeepChainMap, decoded via
// Decode for callers that want struct field access instead of map lookups.
type Config struct {
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	Models    ModelsConfig    `yaml:"models" mapstructure:"models"`
	Behavior  BehaviorConfig  `yaml:"behavior" mapstructure:"behavior"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Tools     ToolsConfig     `yaml:"tools" mapstructure:"tools"`
	Hooks     HooksConfig     `yaml:"hooks" mapstructure:"hooks"`
	Skills    SkillsConfig    `yaml:"skills" mapstructure:"skills"`
	Plugins   PluginsConfig   `yaml:"plugins" mapstructure:"plugins"`
	Sessions  SessionsConfig  `yaml:"sessions" mapstructure:"sessions"`
	Workspace WorkspaceConfig `yaml:"workspace" mapstructure:"workspace"`
}

type SessionsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

type WorkspaceConfig struct {
	RulesDir  string `yaml:"rules_dir" mapstructure:"rules_dir"`
	SkillsDir string `yaml:"skills_dir" mapstructure:"skills_dir"`
}

type ProvidersConfig struct {
	Default string `yaml:"default" mapstructure:"default"`
}

type ModelsConfig struct {
	Default string `yaml:"default" mapstructure:"default"`
}

type BehaviorConfig struct {
	MaxRoundsPerTurn   int  `yaml:"max_rounds_per_turn" mapstructure:"max_rounds_per_turn"`
	AutoApprove        bool `yaml:"auto_approve" mapstructure:"auto_approve"`
	AllowHomeDirectory bool `yaml:"allow_home_directory" mapstructure:"allow_home_directory"`
}

type LoggingConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
}

type BashToolConfig struct {
	TimeoutSeconds int      `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	AllowEnv       []string `yaml:"allow_env" mapstructure:"allow_env"`
}

type ToolsConfig struct {
	Bash BashToolConfig `yaml:"bash" mapstructure:"bash"`
}

type HooksConfig struct {
	ScriptTimeoutSeconds int `yaml:"script_timeout_seconds" mapstructure:"script_timeout_seconds"`
}

type SkillsLoadConfig struct {
	Watch           bool `yaml:"watch" mapstructure:"watch"`
	WatchDebounceMs int  `yaml:"watch_debounce_ms" mapstructure:"watch_debounce_ms"`
}

type SkillsConfig struct {
	Load SkillsLoadConfig `yaml:"load" mapstructure:"load"`
}

type PluginsConfig struct {
	DisableEntryPointPlugins bool `yaml:"disable_entry_point_plugins" mapstructure:"disable_entry_point_plugins"`
}
