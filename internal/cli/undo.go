package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stacktool.dev/stk/internal/gitio"
)

// newUndoCmd implements the "external undo collaborator" spec.md §4.8
// describes: the core engine's only contract is to write snapshots before
// every mutation; replaying one back into the repo lives here, grounded on
// the teacher's internal/cli/undo.go (a --snapshot label flag defaulting
// to the most recent one).
func newUndoCmd() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Restore branch positions recorded in a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, err := bootstrap(cmd.Context(), debugFlag)
			if err != nil {
				return err
			}

			var (
				restoreLabel string
				pairs        []branchCommit
			)

			if label != "" {
				s, err := ac.Store.ByLabel(label)
				if err != nil {
					return err
				}
				restoreLabel = s.Label
				for _, e := range s.Entries {
					pairs = append(pairs, branchCommit{branch: e.Branch, commit: e.Commit})
				}
			} else {
				s, err := ac.Store.Latest()
				if err != nil {
					return err
				}
				restoreLabel = s.Label
				for _, e := range s.Entries {
					pairs = append(pairs, branchCommit{branch: e.Branch, commit: e.Commit})
				}
			}

			for _, pc := range pairs {
				id := gitio.NewCommitID(pc.commit)
				if err := ac.Repo.SetBranch(cmd.Context(), pc.branch, id); err != nil {
					return fmt.Errorf("restore %s: %w", pc.branch, err)
				}
			}

			fmt.Printf("restored %d branch(es) from snapshot %q\n", len(pairs), restoreLabel)
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "snapshot", "", "snapshot label to restore (defaults to the most recent)")
	return cmd
}

type branchCommit struct {
	branch string
	commit string
}
