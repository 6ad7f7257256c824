package main

import "github.com/spf13/cobra"

var version = "dev"

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "brynhild",
		Short:   "Brynhild - an agentic CLI runtime",
		Long:    `Brynhild streams one conversation turn at a time through a provider, a tool registry, and a hook pipeline.`,
		Version: version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildChatCmd(),
		buildConfigCmd(),
		buildSessionCmd(),
		buildLogsCmd(),
		buildAPICmd(),
	)
	return rootCmd
}
