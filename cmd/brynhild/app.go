package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brynhild/brynhild/internal/config"
	"github.com/brynhild/brynhild/internal/convlog"
	"github.com/brynhild/brynhild/internal/hooks"
	"github.com/brynhild/brynhild/internal/processor"
	"github.com/brynhild/brynhild/internal/profile"
	"github.com/brynhild/brynhild/internal/promptbuilder"
	"github.com/brynhild/brynhild/internal/rules"
	"github.com/brynhild/brynhild/internal/session"
	"github.com/brynhild/brynhild/internal/skills"
	"github.com/brynhild/brynhild/internal/tools"
	"github.com/brynhild/brynhild/pkg/provider"
)

// app bundles a loaded config with every collaborator wired from it; each
// subcommand built by root.go's buildRootCmd gets its own via loadApp.
type app struct {
	Config   *config.Config
	DCM      *config.DeepChainMap
	Sessions *session.Manager
	Tools    *tools.Registry
	Hooks    *hooks.Manager
	Skills   *skills.Registry
	Rules    *rules.Manager
	Profiles *profile.Manager
}

func loadApp(cwd string) (*app, error) {
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		cwd = wd
	}

	dcm, err := config.Load(config.LoadOptions{StartDir: cwd})
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := config.Decode(dcm, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	sessDir := expandHome(cfg.Sessions.Dir)
	if err := os.MkdirAll(sessDir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	sessions, err := session.NewManager(sessDir)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	timeout := time.Duration(secondsOrDefault(cfg.Tools.Bash.TimeoutSeconds, 120)) * time.Second
	toolReg := tools.NewRegistry()
	toolReg.Register(tools.NewBashTool(cwd, timeout))
	toolReg.Register(&tools.FileReadTool{Root: cwd})
	toolReg.Register(&tools.FileWriteTool{Root: cwd})
	toolReg.Register(&tools.FileEditTool{Root: cwd})
	toolReg.Register(&tools.InspectTool{Root: cwd})

	skillReg := skills.NewRegistry(nil)
	skillsDir := filepath.Join(cwd, cfg.Workspace.SkillsDir)
	skillReg.LoadDir(skillsDir, skills.SourceProject)
	toolReg.Register(&tools.LearnSkillTool{Registry: skillReg})

	rulesMgr := rules.NewManager(cwd, cwd, expandHome("~/.config/brynhild/rules"))

	var userProfiles map[string]*profile.ModelProfile
	if p, err := profile.LoadUserProfiles(expandHome("~/.config/brynhild/profiles")); err == nil {
		userProfiles = p
	}
	profiles := profile.NewManager(userProfiles, nil, nil)

	hookMgr := hooks.NewManager(nil)

	return &app{
		Config:   &cfg,
		DCM:      dcm,
		Sessions: sessions,
		Tools:    toolReg,
		Hooks:    hookMgr,
		Skills:   skillReg,
		Rules:    rulesMgr,
		Profiles: profiles,
	}, nil
}

func secondsOrDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// apiKeyFor resolves the API key for a provider name from the process
// environment, matching pkg/provider.NewAnthropic's own fallback (an
// empty key defers to the SDK's environment lookup) but letting callers
// detect "no key at all" before spending a round trip.
func apiKeyFor(providerName string) (key string, hasKey bool) {
	switch providerName {
	case "anthropic", "":
		key = os.Getenv("ANTHROPIC_API_KEY")
	default:
		key = os.Getenv(strings.ToUpper(providerName) + "_API_KEY")
	}
	return key, key != ""
}

func newProvider(providerName, apiKey string) (provider.LLMProvider, error) {
	switch providerName {
	case "anthropic", "":
		return provider.NewAnthropic(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", providerName)
	}
}

func (a *app) newProcessor(p provider.LLMProvider) *processor.Processor {
	proc := processor.New(p, a.Tools, processor.Config{
		MaxRoundsPerTurn: a.Config.Behavior.MaxRoundsPerTurn,
		AutoApprove:      a.Config.Behavior.AutoApprove,
	})
	proc.Hooks = a.Hooks
	proc.Skills = a.Skills
	proc.Sessions = a.Sessions
	return proc
}

func (a *app) buildPromptContext(logger *convlog.Logger, model, providerName string) (*promptbuilder.Context, error) {
	builder := &promptbuilder.Builder{
		Rules:    a.Rules,
		Skills:   a.Skills,
		Profiles: a.Profiles,
		Logger:   logger,
	}
	return builder.Build(basePrompt, model, providerName)
}

const basePrompt = `You are Brynhild, an agentic CLI assistant. Use the available tools to complete the user's request, and call the finish tool once you are done.`

func openConvlog(dir, sessionID string) (*convlog.Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, sessionID+".jsonl")
	return convlog.Open(path, convlog.Options{})
}

func convlogPath(dir, sessionID string) string {
	return filepath.Join(dir, sessionID+".jsonl")
}
