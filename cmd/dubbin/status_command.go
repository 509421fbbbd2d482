package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dubbin/internal/phases"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <video>",
		Short: "Show per-phase state for an episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ws, m, err := openWorkspace(cfg, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Workspace: %s\n", ws.Root)
			if m.Job.RunID != "" {
				fmt.Fprintf(out, "Last run:  %s (%s)\n", m.Job.RunID, m.Job.StartedAt.Local().Format(time.RFC3339))
			}

			rows := make([][]string, 0, len(phases.Names()))
			for _, name := range phases.Names() {
				rec := m.Record(name)
				if rec == nil {
					rows = append(rows, []string{name, "never ran", "", ""})
					continue
				}
				finished := ""
				if !rec.FinishedAt.IsZero() {
					finished = rec.FinishedAt.Local().Format("2006-01-02 15:04:05")
				}
				rows = append(rows, []string{name, rec.Status, finished, rec.Error})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Phase", "Status", "Finished", "Error"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}
	return cmd
}
