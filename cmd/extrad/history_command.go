package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"extrad/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		itemID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent download attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryDBPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			var records []history.Record
			if itemID != "" {
				records, err = store.ForItem(cmd.Context(), itemID)
			} else {
				records, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no history")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.CreatedAt.Local().Format(time.RFC3339),
					rec.Title,
					rec.Category,
					rec.VideoKey,
					rec.Status,
					rec.Detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"When", "Title", "Category", "Key", "Status", "Detail"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum records to show")
	cmd.Flags().StringVar(&itemID, "item-id", "", "Only show records for one item")

	return cmd
}
