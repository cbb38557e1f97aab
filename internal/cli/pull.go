package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stacktool.dev/stk/internal/plan"
	"stacktool.dev/stk/internal/stackmodel"
	"stacktool.dev/stk/internal/ui"
)

// newPullCmd is grounded on the teacher's internal/cli/stack/sync.go:
// fetch, fast-forward protected branches, then rebase every stack onto
// its moved base.
func newPullCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Fetch and rebase every stack onto its updated base",
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, err := bootstrap(cmd.Context(), debugFlag)
			if err != nil {
				return err
			}

			stacks := stackmodel.Discover(ac.Graph, stackOptions(ac))
			protected := protectedBranchNames(ac)

			p, _, err := plan.Build(ac.Graph, ac.Cfg, plan.Intent{
				Operation:         plan.OpPull,
				Stacks:            stacks,
				ProtectedBranches: protected,
			})
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Print(ui.RenderPlan(p))
				return nil
			}

			res, err := ac.Exec.Apply(cmd.Context(), p, "pull")
			if err != nil {
				return err
			}
			fmt.Printf("applied %d action(s)\n", len(res.Applied))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without applying it")
	return cmd
}
