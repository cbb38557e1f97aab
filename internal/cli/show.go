package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stacktool.dev/stk/internal/stackmodel"
	"stacktool.dev/stk/internal/ui"
)

// newShowCmd is grounded on the teacher's internal/cli/log.go and its
// StackTreeRenderer (internal/output/tree.go), rendering every discovered
// stack rather than the teacher's single metadata-tracked one since
// stacks here are recomputed from the graph each run.
func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print every discovered stack as a colored tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, err := bootstrap(cmd.Context(), debugFlag)
			if err != nil {
				return err
			}

			stacks := stackmodel.Discover(ac.Graph, stackOptions(ac))
			if len(stacks) == 0 {
				fmt.Println("no development stacks found")
				return nil
			}

			for i, s := range stacks {
				if i > 0 {
					fmt.Println()
				}
				fmt.Print(ui.RenderStack(ac.Graph, s, ac.Branch, ac.Cfg.PushRemote))
			}
			return nil
		},
	}
	return cmd
}
