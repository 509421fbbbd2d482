package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dubbin/internal/phases"
	"dubbin/internal/pipeline"
)

func newBlessCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bless <video> [phase]",
		Short: "Accept manual artifact edits as the new baseline",
		Long: "Bless re-records output fingerprints for a phase so a hand-edited\n" +
			"artifact is treated as that phase's legitimate output instead of drift.\n" +
			"Without a phase argument every phase whose outputs exist is blessed.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ws, m, err := openWorkspace(cfg, args[0])
			if err != nil {
				return err
			}
			phase := ""
			if len(args) == 2 {
				phase = strings.TrimSpace(args[1])
			}

			lock, err := ws.AcquireLock()
			if err != nil {
				return err
			}
			defer lock.Release()

			env := &phases.Env{Config: cfg}
			runner := pipeline.NewRunner(phases.All(env), nil)
			blessed, err := runner.Bless(ws, m, phase)
			if err != nil {
				return err
			}
			if len(blessed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to bless")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Blessed: %s\n", strings.Join(blessed, ", "))
			return nil
		},
	}
	return cmd
}
