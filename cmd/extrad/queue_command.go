package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"extrad/internal/daemon"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "List pending queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			var payload daemon.QueuePayload
			if err := client.get("/api/queue", &payload); err != nil {
				return err
			}
			if len(payload.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(payload.Items))
			for _, item := range payload.Items {
				rows = append(rows, []string{
					item.ItemID,
					item.Title,
					strconv.FormatInt(item.TMDBID, 10),
					item.Kind,
					item.Priority,
					item.EnqueuedAt.Local().Format(time.RFC3339),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Item", "Title", "TMDB", "Kind", "Priority", "Enqueued"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}
}
