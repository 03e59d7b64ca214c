package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bindery/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and sync status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *api.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, status)
				}
				renderStatus(cmd, status)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit status as JSON")
	return cmd
}

func renderStatus(cmd *cobra.Command, status *api.DaemonStatus) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	wf := status.Workflow

	fmt.Fprintf(out, "Book:        %s\n", wf.Title)
	fmt.Fprintf(out, "Daemon:      %s\n", runningLabel(status.Running))
	fmt.Fprintf(out, "Chunk size:  %s (margin %d%%)\n", formatSize(wf.MaxChunkSizeBytes), wf.SafetyMarginPercent)
	fmt.Fprintf(out, "Compression: %s\n", wf.CompressionLevel)
	fmt.Fprintf(out, "Optimized:   %d/%d items (%s)\n", wf.ProcessedItems, wf.ItemCount, formatPercent(wf.Progress))
	if wf.LastError != "" {
		fmt.Fprintf(out, "Last error:  %s\n", wf.LastError)
	}

	switch {
	case !wf.Planned:
		fmt.Fprintln(out, "\nNo plan computed yet")
		return
	case !wf.PlanCurrent:
		fmt.Fprintln(out, "\nPlan is being recomputed after recent changes")
	}

	rows := make([][]string, 0, len(wf.Chunks))
	for _, chunk := range wf.Chunks {
		size := formatSize(chunk.VerifiedSizeBytes)
		if chunk.VerifiedSizeBytes == 0 {
			size = "~" + formatSize(chunk.EstimatedSizeBytes)
		}
		state := chunk.SyncStatus
		if chunk.Oversized {
			state = "oversized"
		}
		state = colorized(state, syncStatusColor(chunk.SyncStatus), colorize && !chunk.Oversized)
		detail := chunk.LastError
		if detail == "" && chunk.RemoteObjectID != "" {
			detail = chunk.RemoteObjectID
		}
		rows = append(rows, []string{
			strconv.Itoa(chunk.PartNumber),
			chunk.Title,
			strconv.Itoa(len(chunk.ItemIDs)),
			size,
			state,
			detail,
		})
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"Part", "Title", "Items", "Size", "Sync", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	))

	synced := 0
	for _, chunk := range wf.Chunks {
		if chunk.SyncStatus == "synced" && !chunk.Oversized {
			synced++
		}
	}
	fmt.Fprintf(out, "%d of %d chunks synced\n", synced, len(wf.Chunks))
}

func runningLabel(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}
