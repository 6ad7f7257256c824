package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/brynhild/brynhild/pkg/models"
)

// controlChars matches the carriage-return / line-feed pair that would
// let a command string smuggle a second shell command past review.
var controlChars = regexp.MustCompile(`[\r\n]`)

// DefaultDenyPatterns names the substrings that exclude an environment
// variable from a bash tool subprocess's inherited environment, even if
// the allow-list would otherwise let it through.
var DefaultDenyPatterns = []string{"_API_KEY", "_SECRET", "_TOKEN", "AWS_", "_PASSWORD", "_CREDENTIAL"}

// DefaultAllowList names the environment variables passed through to
// bash tool subprocesses by default.
var DefaultAllowList = []string{"PATH", "HOME", "LANG", "LC_ALL", "TERM", "USER", "SHELL"}

// BashTool executes a shell command via sh -c with a restricted,
// allow-listed environment and a hard timeout. Every call blocks for the
// command's full, bounded lifetime; there is no detached/background mode.
type BashTool struct {
	Timeout  time.Duration
	AllowEnv []string
	DenyEnv  []string
	Cwd      string
}

// NewBashTool builds a BashTool with the given defaults.
func NewBashTool(cwd string, timeout time.Duration) *BashTool {
	return &BashTool{
		Timeout:  timeout,
		AllowEnv: DefaultAllowList,
		DenyEnv:  DefaultDenyPatterns,
		Cwd:      cwd,
	}
}

func (b *BashTool) Name() string        { return "bash" }
func (b *BashTool) Description() string { return "Run a shell command and return its output." }

func (b *BashTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command":         map[string]any{"type": "string"},
			"timeout_seconds": map[string]any{"type": "integer", "minimum": 1},
		},
		"required":             []any{"command"},
		"additionalProperties": false,
	}
}

func (b *BashTool) RequiresPermission() bool { return true }

type bashInput struct {
	Command        string `json:"command"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// filteredEnv builds the subprocess environment: only allow-listed
// variables pass through, and any variable whose name contains a deny
// pattern is excluded even if allow-listed.
func (b *BashTool) filteredEnv() []string {
	var env []string
	for _, name := range b.AllowEnv {
		if b.denied(name) {
			continue
		}
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	return env
}

func (b *BashTool) denied(name string) bool {
	for _, pattern := range b.DenyEnv {
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

func (b *BashTool) Execute(ctx context.Context, raw json.RawMessage) (models.ToolResult, error) {
	var in bashInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return models.Failed(fmt.Sprintf("invalid input: %v", err)), nil
	}
	// The full command string legitimately contains shell syntax, so only
	// the control-character / null-byte classes of abuse are rejected here.
	if strings.ContainsAny(in.Command, "\x00") || controlChars.MatchString(in.Command) {
		return models.Failed("command contains forbidden control characters"), nil
	}

	timeout := b.Timeout
	if in.TimeoutSeconds > 0 {
		timeout = time.Duration(in.TimeoutSeconds) * time.Second
	}

	return b.runForeground(ctx, in.Command, timeout), nil
}

func (b *BashTool) runForeground(ctx context.Context, command string, timeout time.Duration) models.ToolResult {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = b.Cwd
	cmd.Env = b.filteredEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Bound the wait for output pipes held open by grandchildren after
	// the timeout kills sh.
	cmd.WaitDelay = 100 * time.Millisecond

	err := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return models.Failed(fmt.Sprintf("command timed out after %s", timeout))
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			out := stdout.String() + stderr.String()
			return models.Failed(fmt.Sprintf("exit status %d: %s", exitErr.ExitCode(), out))
		}
		return models.Failed(err.Error())
	}
	return models.Ok(stdout.String())
}
