package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/lernpack/pkg/lernpack/drafts"
	"github.com/cognicore/lernpack/pkg/lernpack/quality"
)

var errBlocked = errors.New("packs blocked by quality gates")

func newGateCmd(a *app) *cobra.Command {
	var (
		stage  string
		policy quality.Policy
	)
	cmd := &cobra.Command{
		Use:   "gate <pack.json>...",
		Short: "Run the quality gates over draft pack files",
		Long: `Evaluate draft packs against the quality rules.

At the pre-approval stage any failure blocks the pack and the command exits
non-zero. At the post-approval stage failures are reported as advisory and
the command succeeds.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := quality.ParseStage(stage)
			if err != nil {
				return err
			}
			comp, err := a.components()
			if err != nil {
				return err
			}
			eval := quality.NewEvaluator(comp.Lexicon)

			out := cmd.OutOrStdout()
			blocked := 0
			for _, path := range args {
				pack, err := drafts.Read(path)
				if err != nil {
					return err
				}
				res := eval.Run(pack)
				d := policy.Decide(st, res)

				status := "PASS"
				switch {
				case d.Blocked:
					status = "BLOCKED"
					blocked++
				case !d.Passed:
					status = "ADVISORY"
				}
				fmt.Fprintf(out, "%s %s (%s)\n", status, pack.ID, d.Stage)
				for _, f := range res.Failures {
					fmt.Fprintf(out, "  fail %s %s: %s\n", f.Rule, f.PromptID, f.Reason)
				}
				for _, w := range res.Warnings {
					fmt.Fprintf(out, "  warn %s %s: %s\n", w.Rule, w.PromptID, w.Reason)
				}
			}
			if blocked > 0 {
				return fmt.Errorf("%w: %d of %d", errBlocked, blocked, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&stage, "stage", string(quality.StagePreApproval), "pre-approval or post-approval")
	cmd.Flags().BoolVar(&policy.StrictWarnings, "strict-warnings", false, "warnings also block at pre-approval")
	return cmd
}
