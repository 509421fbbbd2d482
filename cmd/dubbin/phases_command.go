package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dubbin/internal/config"
	"dubbin/internal/phases"
)

func newPhasesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "phases",
		Short:       "List pipeline phases in execution order",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			env := &phases.Env{Config: config.Default()}
			rows := make([][]string, 0, 9)
			for _, p := range phases.All(env) {
				rows = append(rows, []string{
					p.Name(),
					strings.Join(p.Requires(), "\n"),
					strings.Join(p.Provides(), "\n"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Phase", "Requires", "Provides"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}
}
