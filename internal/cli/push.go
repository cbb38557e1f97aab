package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stacktool.dev/stk/internal/plan"
	"stacktool.dev/stk/internal/pushgate"
	"stacktool.dev/stk/internal/stackmodel"
	"stacktool.dev/stk/internal/ui"
)

// newPushCmd is grounded on the teacher's internal/cli/submit.go, trimmed
// of PR creation (spec.md §1 Non-goals exclude hosting-platform calls):
// it evaluates the Push Gate for every branch in scope and pushes only
// the branches that clear it.
func newPushCmd() *cobra.Command {
	var (
		all    bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push every branch in the current stack that is ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, err := bootstrap(cmd.Context(), debugFlag)
			if err != nil {
				return err
			}

			stacks := stackmodel.Discover(ac.Graph, stackOptions(ac))
			targets, err := selectStacks(stacks, ac.Branch, all)
			if err != nil {
				return err
			}

			combined := &plan.Plan{}
			for _, s := range targets {
				sp := pushgate.BuildPushPlan(ac.Graph, s, ac.Cfg.PushRemote)
				combined.Actions = append(combined.Actions, sp.Actions...)
			}

			if combined.IsEmpty() {
				fmt.Println("nothing ready to push")
				return nil
			}

			if dryRun {
				fmt.Print(ui.RenderPlan(combined))
				return nil
			}

			res, err := ac.Exec.Apply(cmd.Context(), combined, "push")
			if err != nil {
				return err
			}
			fmt.Printf("pushed %d branch(es)\n", len(res.Applied))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "push every stack, not just the current one")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without applying it")
	return cmd
}
