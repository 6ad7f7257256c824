package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brynhild/brynhild/pkg/models"
)

func buildSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage saved sessions",
	}
	cmd.AddCommand(
		buildSessionListCmd(),
		buildSessionShowCmd(),
		buildSessionDeleteCmd(),
		buildSessionRenameCmd(),
	)
	return cmd
}

func buildSessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp("")
			if err != nil {
				return err
			}
			sessions, err := a.Sessions.ListSessions()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range sessions {
				title := s.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Fprintf(out, "%s\t%s\t%d msgs\t%s\n", s.ID, s.UpdatedAt.Format("2006-01-02 15:04"), len(s.Messages), title)
			}
			return nil
		},
	}
}

func buildSessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a session's transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp("")
			if err != nil {
				return err
			}
			sess, err := loadSessionOrUsageError(a, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range sess.Messages {
				fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
				for _, tc := range m.ToolCalls {
					fmt.Fprintf(out, "  tool_call %s %s(%s)\n", tc.ID, tc.Name, string(tc.Input))
				}
			}
			return nil
		},
	}
}

func buildSessionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp("")
			if err != nil {
				return err
			}
			if _, err := loadSessionOrUsageError(a, args[0]); err != nil {
				return err
			}
			return a.Sessions.Delete(args[0])
		},
	}
}

func buildSessionRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <new-id>",
		Short: "Rename a session's id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp("")
			if err != nil {
				return err
			}
			if _, err := loadSessionOrUsageError(a, args[0]); err != nil {
				return err
			}
			if err := models.ValidateSessionID(args[1]); err != nil {
				return usageErrorf("invalid session id %q: %w", args[1], err)
			}
			return a.Sessions.Rename(args[0], args[1])
		},
	}
}

func loadSessionOrUsageError(a *app, id string) (*models.Session, error) {
	if err := models.ValidateSessionID(id); err != nil {
		return nil, usageErrorf("invalid session id %q: %w", id, err)
	}
	if !a.Sessions.Exists(id) {
		return nil, usageErrorf("no such session %q", id)
	}
	return a.Sessions.Load(id)
}
