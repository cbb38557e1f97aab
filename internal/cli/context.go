// Package cli provides the command-line interface, built with Cobra the
// way the teacher's internal/cli/root.go is, wiring flags to the engine
// packages (gitio, graph, protect, stackmodel, plan, exec, pushgate,
// snapshot) instead of the teacher's single engine.Engine facade.
package cli

import (
	"context"
	"fmt"
	"time"

	"stacktool.dev/stk/internal/config"
	"stacktool.dev/stk/internal/exec"
	"stacktool.dev/stk/internal/gitio"
	"stacktool.dev/stk/internal/graph"
	"stacktool.dev/stk/internal/protect"
	"stacktool.dev/stk/internal/snapshot"
	"stacktool.dev/stk/internal/stackmodel"
	"stacktool.dev/stk/internal/ui"
)

// appContext bundles everything a subcommand needs, built once per
// invocation by bootstrap. Grounded on the teacher's runtime.Context,
// trimmed of the GitHub client and demo-mode factories this core has no
// use for (spec.md §1 Non-goals exclude hosting-platform collaborators).
type appContext struct {
	Repo   *gitio.Repo
	Cfg    config.Config
	Graph  *graph.Graph
	Store  *snapshot.Store
	Exec   *exec.Executor
	Log    *ui.Logger
	Head   gitio.CommitID
	Branch string
}

func bootstrap(ctx context.Context, debug bool) (*appContext, error) {
	log := ui.NewLogger(debug)

	repo, err := gitio.Open(".")
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	loader := config.NewLoader(repo)
	cfg, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	head, branch, err := repo.Head()
	if err != nil {
		return nil, err
	}

	g, err := graph.Build(ctx, repo, graph.BuildOptions{
		PullRemote: cfg.PullRemote,
		PushRemote: cfg.PushRemote,
		Horizon:    cfg.AutoBaseCommitCount,
	})
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	_, localEmail, err := repo.LocalIdentity(ctx)
	if err != nil {
		localEmail = ""
	}
	headIdx := g.IndexOf(head)
	g.AnnotateWIPAndForeign(localEmail, headIdx)

	protect.Classify(g, headIdx, protect.Rules{
		ProtectedBranchGlobs: cfg.ProtectedBranchGlobs,
		ProtectCommitCount:   cfg.ProtectCommitCount,
		ProtectCommitAge:     cfg.ProtectCommitAge,
		ForeignProtection:    cfg.ForeignProtection,
		Now:                  time.Now(),
	})

	store := snapshot.Open(repo.GitDir())
	ex := exec.New(repo, store, cfg.GPGSign)

	return &appContext{
		Repo:   repo,
		Cfg:    cfg,
		Graph:  g,
		Store:  store,
		Exec:   ex,
		Log:    log,
		Head:   head,
		Branch: branch,
	}, nil
}

// stackOptions translates the loaded config into stackmodel.Options, the
// same narrowing the teacher's commands do from its single config.Config
// to each action's option struct. Upstreams feeds the base tie-break's
// first clause (spec.md §4.4 step 2); a branch with no configured upstream
// just falls through to the remaining clauses.
func stackOptions(ac *appContext) stackmodel.Options {
	upstreams := map[string]string{}
	if branches, err := ac.Repo.LocalBranches(); err == nil {
		for _, b := range branches {
			if b.Upstream != "" {
				upstreams[b.Name] = b.Upstream
			}
		}
	}
	return stackmodel.Options{
		ProtectedBranchGlobs: ac.Cfg.ProtectedBranchGlobs,
		PullRemote:           ac.Cfg.PullRemote,
		Upstreams:            upstreams,
	}
}

// protectedBranchNames lists every branch the classifier marked Protected,
// the input pull.BuildPullPlan needs to know which local refs to
// fast-forward.
func protectedBranchNames(ac *appContext) []string {
	var names []string
	for name, idx := range ac.Graph.Branches {
		if ac.Graph.Nodes[idx].Protected {
			names = append(names, name)
		}
	}
	return names
}
