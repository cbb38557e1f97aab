// Package cli provides the command-line interface, built with Cobra the
// way the teacher's internal/cli/root.go is, wiring flags straight to the
// engine packages (gitio, graph, protect, stackmodel, plan, exec,
// pushgate, snapshot) instead of the teacher's single engine.Engine
// facade.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var debugFlag bool

// NewRootCmd builds the root command, mirroring the teacher's
// version/commit/date injection from main.go.
func NewRootCmd(version, commit, date string) *cobra.Command {
	root := &cobra.Command{
		Use:           "stk",
		Short:         "Manage stacks of Git branches",
		Long:          "stk plans and applies rebases, pushes, and merges across stacks of dependent branches.",
		Version:       fmt.Sprintf("%s (%s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().BoolVar(&debugFlag, "debug", false, "log diagnostic detail to stderr")

	root.AddCommand(
		newPullCmd(),
		newRebaseCmd(),
		newRepairCmd(),
		newPushCmd(),
		newShowCmd(),
		newUndoCmd(),
	)

	return root
}
