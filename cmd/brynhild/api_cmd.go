package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brynhild/brynhild/pkg/models"
	"github.com/brynhild/brynhild/pkg/provider"
)

func buildAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Inspect provider connectivity",
	}
	cmd.AddCommand(buildAPITestCmd())
	return cmd
}

func buildAPITestCmd() *cobra.Command {
	var (
		providerName string
		model        string
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a short (at most 8 tokens) completion to confirm the configured provider and API key work",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp("")
			if err != nil {
				return err
			}
			if providerName == "" {
				providerName = a.Config.Providers.Default
			}
			if model == "" {
				model = a.Config.Models.Default
			}

			apiKey, hasKey := apiKeyFor(providerName)
			if !hasKey {
				return fmt.Errorf("no API key configured for provider %q", providerName)
			}
			prov, err := newProvider(providerName, apiKey)
			if err != nil {
				return err
			}

			events, err := prov.Stream(cmd.Context(), provider.CompletionRequest{
				Model:     model,
				Messages:  []models.Message{{Role: models.RoleUser, Content: "Reply with exactly: OK"}},
				MaxTokens: 8,
			})
			if err != nil {
				return fmt.Errorf("api test: %w", err)
			}

			var reply string
			for ev := range events {
				if ev.Err != nil {
					return fmt.Errorf("api test: %w", ev.Err)
				}
				if ev.Type == provider.EventTextDelta {
					reply += ev.Delta
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (model %s, reply %q)\n", prov.Name(), model, reply)
			return nil
		},
	}
	cmd.Flags().StringVar(&providerName, "provider", "", "Provider to test (default: config providers.default)")
	cmd.Flags().StringVar(&model, "model", "", "Model to use (default: config models.default)")
	return cmd
}
