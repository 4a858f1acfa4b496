package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTemplatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the available scenario templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := a.components()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCENARIO\tREGISTER\tSTEPS\tPROMPTS")
			for _, id := range comp.Templates.Scenarios() {
				tpl, err := comp.Templates.Get(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", id, tpl.DefaultRegister, len(tpl.StepBlueprint), tpl.PromptCount())
			}
			return w.Flush()
		},
	}
}
