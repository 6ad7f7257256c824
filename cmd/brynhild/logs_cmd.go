package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/brynhild/brynhild/internal/convlog"
)

func buildLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect conversation logs",
	}
	cmd.AddCommand(buildLogsListCmd(), buildLogsViewCmd(), buildLogsValidateCmd())
	return cmd
}

func buildLogsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversation log files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp("")
			if err != nil {
				return err
			}
			dir := expandHome(a.Config.Logging.Dir)
			entries, err := os.ReadDir(dir)
			if os.IsNotExist(err) {
				return nil
			}
			if err != nil {
				return err
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
			out := cmd.OutOrStdout()
			for _, e := range entries {
				if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
					continue
				}
				fmt.Fprintln(out, filepath.Join(dir, e.Name()))
			}
			return nil
		},
	}
}

func buildLogsViewCmd() *cobra.Command {
	var atVersion int
	var atTurn int

	cmd := &cobra.Command{
		Use:   "view <path>",
		Short: "Print a log's events, or a reconstructed context/turn view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveLogPath(args[0])
			if err != nil {
				return err
			}
			reader, err := convlog.Read(path)
			if err != nil {
				return usageErrorf("read log %q: %w", path, err)
			}
			out := cmd.OutOrStdout()

			switch {
			case atTurn > 0:
				view, err := reader.GetLLMViewAtTurn(atTurn)
				if err != nil {
					return usageErrorf("%w", err)
				}
				fmt.Fprintln(out, "--- system prompt ---")
				fmt.Fprintln(out, view.SystemPrompt)
				fmt.Fprintln(out, "--- messages ---")
				for _, m := range view.Messages {
					fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
				}
			case atVersion > 0:
				ctx, err := reader.GetContextAtVersion(atVersion)
				if err != nil {
					return usageErrorf("%w", err)
				}
				fmt.Fprintln(out, ctx.SystemPrompt)
			default:
				for _, e := range reader.GetEvents() {
					fmt.Fprintf(out, "%d\t%s\t%s\t%v\n", e.EventNumber, e.Timestamp, e.EventType, e.Payload)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&atVersion, "at-version", 0, "Reconstruct the system prompt at this context version")
	cmd.Flags().IntVar(&atTurn, "at-turn", 0, "Reconstruct exactly what the model saw at this user turn (1-indexed)")
	return cmd
}

func buildLogsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Recompute every event's content hash and report mismatches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveLogPath(args[0])
			if err != nil {
				return err
			}
			reader, err := convlog.Read(path)
			if err != nil {
				return usageErrorf("read log %q: %w", path, err)
			}
			ok, errs := reader.Validate()
			out := cmd.OutOrStdout()
			for _, e := range errs {
				fmt.Fprintln(out, e)
			}
			if ok {
				fmt.Fprintln(out, "ok")
				return nil
			}
			return fmt.Errorf("log validation failed with %d error(s)", len(errs))
		},
	}
}

// resolveLogPath accepts either a literal path to a .jsonl file or a
// bare session id resolved against the configured logging directory.
func resolveLogPath(arg string) (string, error) {
	if filepath.Ext(arg) == ".jsonl" {
		return arg, nil
	}
	a, err := loadApp("")
	if err != nil {
		return "", err
	}
	return convlogPath(expandHome(a.Config.Logging.Dir), arg), nil
}
