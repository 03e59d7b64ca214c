package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"bindery/internal/api"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change bundle settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *api.Client) error {
				settings, err := client.Settings(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Max chunk size: %s\n", formatSize(settings.MaxChunkSizeBytes))
				fmt.Fprintf(out, "Compression:    %s\n", settings.CompressionLevel)
				fmt.Fprintf(out, "Safety margin:  %d%%\n", settings.SafetyMarginPercent)
				return nil
			})
		},
	}

	settingsCmd.AddCommand(newSettingsSetCommand(ctx))
	return settingsCmd
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	var maxChunkSize string
	var level string
	var margin int

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update bundle settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *api.Client) error {
				settings, err := client.Settings(cmd.Context())
				if err != nil {
					return err
				}

				payload := *settings
				if strings.TrimSpace(maxChunkSize) != "" {
					bytes, err := humanize.ParseBytes(maxChunkSize)
					if err != nil {
						return fmt.Errorf("invalid chunk size %q: %w", maxChunkSize, err)
					}
					payload.MaxChunkSizeBytes = int64(bytes)
				}
				if strings.TrimSpace(level) != "" {
					payload.CompressionLevel = strings.ToLower(strings.TrimSpace(level))
				}
				if cmd.Flags().Changed("margin") {
					payload.SafetyMarginPercent = margin
				}
				if payload == *settings {
					return fmt.Errorf("nothing to change; pass --max-chunk-size, --level, or --margin")
				}

				if err := client.UpdateSettings(cmd.Context(), payload); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settings updated; the plan will be recomputed")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&maxChunkSize, "max-chunk-size", "", "Bundle size ceiling, e.g. 25MiB")
	cmd.Flags().StringVar(&level, "level", "", "Compression level: low, medium, or high")
	cmd.Flags().IntVar(&margin, "margin", 0, "Safety margin percentage (0-20)")
	return cmd
}
