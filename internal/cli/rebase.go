package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stacktool.dev/stk/internal/plan"
	"stacktool.dev/stk/internal/stackmodel"
	"stacktool.dev/stk/internal/ui"
)

// newRebaseCmd is grounded on the teacher's internal/cli/restack.go:
// recompute the current stack and rewrite it onto its base, with the same
// --onto override and an --all breadth knob.
func newRebaseCmd() *cobra.Command {
	var (
		onto   string
		all    bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "rebase",
		Short: "Rebase the current stack (or every stack) onto its base",
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, err := bootstrap(cmd.Context(), debugFlag)
			if err != nil {
				return err
			}

			opts := stackOptions(ac)
			if onto != "" {
				id, err := ac.Repo.Resolve(onto)
				if err != nil {
					return fmt.Errorf("resolve --onto %q: %w", onto, err)
				}
				opts.ExplicitOnto = id
			}

			stacks := stackmodel.Discover(ac.Graph, opts)
			targets, err := selectStacks(stacks, ac.Branch, all)
			if err != nil {
				return err
			}

			p, _, err := plan.Build(ac.Graph, ac.Cfg, plan.Intent{
				Operation: plan.OpRebase,
				Stacks:    targets,
			})
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Print(ui.RenderPlan(p))
				return nil
			}

			res, err := ac.Exec.Apply(cmd.Context(), p, "rebase")
			if err != nil {
				return err
			}
			fmt.Printf("applied %d action(s)\n", len(res.Applied))
			return nil
		},
	}

	cmd.Flags().StringVar(&onto, "onto", "", "rebase onto this commit-ish instead of the stack's detected onto")
	cmd.Flags().BoolVar(&all, "all", false, "rebase every stack, not just the current one")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without applying it")
	return cmd
}

// selectStacks narrows discovered stacks to the one containing
// currentBranch, unless all is set.
func selectStacks(stacks []stackmodel.Stack, currentBranch string, all bool) ([]stackmodel.Stack, error) {
	if all {
		return stacks, nil
	}
	for _, s := range stacks {
		for _, b := range s.Branches {
			if b == currentBranch {
				return []stackmodel.Stack{s}, nil
			}
		}
	}
	return nil, fmt.Errorf("branch %q is not part of any discovered stack", currentBranch)
}
