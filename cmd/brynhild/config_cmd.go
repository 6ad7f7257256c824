package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the merged configuration",
	}
	cmd.AddCommand(buildConfigShowCmd(), buildConfigPathCmd())
	return cmd
}

func buildConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the fully merged configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp("")
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(a.DCM.ToDict())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func buildConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print each config layer's file path and whether it exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			layers := []struct{ name, path string }{
				{"project", filepath.Join(cwd, ".brynhild", "config.yaml")},
				{"user", filepath.Join(home, ".config", "brynhild", "config.yaml")},
				{"deployment", os.Getenv("BRYNHILD_DEPLOYMENT_CONFIG")},
				{"site", os.Getenv("BRYNHILD_SITE_CONFIG")},
			}
			out := cmd.OutOrStdout()
			for _, l := range layers {
				if l.path == "" {
					fmt.Fprintf(out, "%-10s (unset)\n", l.name+":")
					continue
				}
				status := "missing"
				if _, err := os.Stat(l.path); err == nil {
					status = "present"
				}
				fmt.Fprintf(out, "%-10s %s (%s)\n", l.name+":", l.path, status)
			}
			return nil
		},
	}
}
