package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"extrad/internal/daemon"
)

func newTriggerCommand(ctx *commandContext) *cobra.Command {
	var (
		itemID string
		title  string
		tmdbID int64
		kind   string
		path   string
	)

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Force a re-scan of one item, bypassing the suppression window",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			var result daemon.AcceptedPayload
			err = client.post("/api/trigger", daemon.TriggerPayload{
				ItemID: itemID,
				Title:  title,
				TMDBID: tmdbID,
				Kind:   kind,
				Path:   path,
			}, &result)
			if err != nil {
				return err
			}
			if result.Accepted {
				fmt.Fprintln(cmd.OutOrStdout(), "queued")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "already pending")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&itemID, "item-id", "", "Catalog item identifier")
	cmd.Flags().StringVar(&title, "title", "", "Item title for logs")
	cmd.Flags().Int64Var(&tmdbID, "tmdb-id", 0, "TMDB identifier (required)")
	cmd.Flags().StringVar(&kind, "kind", "movie", "Item kind: movie or series")
	cmd.Flags().StringVar(&path, "path", "", "Item directory on disk (required)")
	_ = cmd.MarkFlagRequired("tmdb-id")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}
