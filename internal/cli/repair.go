package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stacktool.dev/stk/internal/plan"
	"stacktool.dev/stk/internal/stackmodel"
	"stacktool.dev/stk/internal/ui"
)

// newRepairCmd is grounded on the teacher's internal/cli/doctor.go: detect
// stacks whose branch tips no longer descend from their stack's base and
// offer to realign them with the ordinary rebase plan (this design has no
// separate cached-metadata repair path, see DESIGN.md's internal/plan
// entry for repair.go).
func newRepairCmd() *cobra.Command {
	var (
		fix    bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Detect and optionally fix stacks with stale branch relationships",
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, err := bootstrap(cmd.Context(), debugFlag)
			if err != nil {
				return err
			}

			stacks := stackmodel.Discover(ac.Graph, stackOptions(ac))

			p, anomalies, err := plan.Build(ac.Graph, ac.Cfg, plan.Intent{
				Operation: plan.OpRepair,
				Stacks:    stacks,
			})
			if err != nil {
				return err
			}

			if len(anomalies) == 0 {
				fmt.Println("no anomalies found")
				return nil
			}
			for _, a := range anomalies {
				fmt.Printf("anomaly: %s: %s\n", a.Branch, a.Message)
			}

			if !fix {
				fmt.Println("re-run with --fix to apply the repair plan")
				return nil
			}

			if dryRun {
				fmt.Print(ui.RenderPlan(p))
				return nil
			}

			res, err := ac.Exec.Apply(cmd.Context(), p, "repair")
			if err != nil {
				return err
			}
			fmt.Printf("applied %d action(s)\n", len(res.Applied))
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "apply the repair plan instead of only reporting anomalies")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without applying it")
	return cmd
}
