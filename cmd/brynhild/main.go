// Package main provides the CLI entry point for Brynhild, an agentic
// CLI runtime that streams one conversation turn at a time through a
// provider, a tool registry, and a hook pipeline.
//
// # Basic usage
//
//	brynhild chat "say hello"
//	brynhild chat -p "say hello"      # headless, no permission prompts
//	brynhild session list
//	brynhild logs view <path>
//	brynhild api test
//
// # Environment variables
//
//   - ANTHROPIC_API_KEY: Anthropic API key for the default provider.
//   - BRYNHILD_<SECTION>__<KEY>: overrides any config layer (see
//     internal/config.Load).
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// UsageError marks a command invocation that cobra's own argument
// handling wouldn't already reject but that is nonetheless malformed
// (e.g. an unresolvable session id), mapped to exit code 2 instead of
// the generic failure code 1.
type UsageError struct{ Err error }

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		var usageErr *UsageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(os.Stderr, "error:", usageErr.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
