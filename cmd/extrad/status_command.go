package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"extrad/internal/daemon"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			var status daemon.StatusPayload
			if err := client.get("/api/status", &status); err != nil {
				return err
			}

			running := "no"
			if status.Running {
				running = "yes"
			}
			rows := [][]string{
				{"Running", running},
				{"PID", strconv.Itoa(status.PID)},
				{"Queue depth", strconv.Itoa(status.QueueDepth)},
				{"Lock file", status.LockFilePath},
				{"History DB", status.HistoryDBPath},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))

			if len(status.Dependencies) > 0 {
				depRows := make([][]string, 0, len(status.Dependencies))
				for _, dep := range status.Dependencies {
					available := "yes"
					if !dep.Available {
						available = "no"
					}
					required := "yes"
					if dep.Optional {
						required = "no"
					}
					depRows = append(depRows, []string{dep.Name, dep.Command, required, available, dep.Detail})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Dependency", "Command", "Required", "Available", "Detail"}, depRows, nil))
			}
			return nil
		},
	}
}
