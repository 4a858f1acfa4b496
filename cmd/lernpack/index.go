package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
	"github.com/cognicore/lernpack/pkg/lernpack/store"
)

func (a *app) requireIndex() error {
	if a.cfg.IndexPath == "" {
		return fmt.Errorf("%w: index_path is not set, nothing has been indexed", internalerr.ErrInvalidConfig)
	}
	return nil
}

func newRunsCmd(a *app) *cobra.Command {
	var (
		workspace string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded ingest runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireIndex(); err != nil {
				return err
			}
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), workspace, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tWORKSPACE\tSCENARIO\tLEVEL\tPACKS\tPASSED\tPASS RATE\tREPORT")
			for _, r := range runs {
				rate := 0.0
				if r.Prompts > 0 {
					rate = float64(r.PromptsPassed) / float64(r.Prompts) * 100
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.0f%%\t%s\n",
					r.ID, r.Workspace, r.Scenario, r.Level, r.Packs, r.PacksPassed, rate, r.ReportMarkdown)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "only runs of this workspace")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	return cmd
}

func newPacksCmd(a *app) *cobra.Command {
	var (
		filter store.PackFilter
		tokens []string
	)
	cmd := &cobra.Command{
		Use:   "packs",
		Short: "List indexed draft packs",
		Long: `List indexed draft packs, newest first. With --token only packs whose
top tokens include one of the given tokens are listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireIndex(); err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			var packs []store.PackRecord
			if len(tokens) > 0 {
				found, err := st.PacksByTokens(ctx, tokens, 0)
				if err != nil {
					return err
				}
				for _, p := range found {
					if filter.Match(p) {
						packs = append(packs, p)
					}
				}
				if filter.Limit > 0 && len(packs) > filter.Limit {
					packs = packs[:filter.Limit]
				}
			} else if packs, err = st.ListPacks(ctx, filter); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PACK\tLEVEL\tPROMPTS\tGATES\tPATH")
			for _, p := range packs {
				gates := "pass"
				if !p.Passed {
					gates = fmt.Sprintf("fail %v", p.Failures)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", p.ID, p.Level, p.Prompts, gates, p.Path)
			}
			return w.Flush()
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&filter.Workspace, "workspace", "", "only packs of this workspace")
	fl.StringVar(&filter.Scenario, "scenario", "", "only packs of this scenario")
	fl.BoolVar(&filter.PassedOnly, "passed", false, "only packs that passed the gates")
	fl.IntVar(&filter.Limit, "limit", 50, "maximum number of packs")
	fl.StringSliceVar(&tokens, "token", nil, "match packs by top token (repeatable)")
	return cmd
}
