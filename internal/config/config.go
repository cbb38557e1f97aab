// Package config is the Config Contract (spec.md §4.8/§6): a typed,
// enumerated view of the configuration consumed by the engine, read from
// Git config sources with the usual precedence (system/global/local/
// worktree), and filled in entirely by the loader — no dynamic lookup at
// use sites (spec.md §9 Design Notes).
package config

import "time"

// AutoFixupMode is stack.auto-fixup.
type AutoFixupMode string

const (
	AutoFixupIgnore AutoFixupMode = "ignore"
	AutoFixupMove   AutoFixupMode = "move"
	AutoFixupSquash AutoFixupMode = "squash"
)

// StackSelector is stack.stack / --stack.
type StackSelector string

const (
	StackCurrent    StackSelector = "current"
	StackDependents StackSelector = "dependents"
	StackDescendants StackSelector = "descendants"
	StackAll        StackSelector = "all"
)

// ShowFormat is stack.show-format.
type ShowFormat string

const (
	ShowSilent        ShowFormat = "silent"
	ShowBranches      ShowFormat = "branches"
	ShowBranchCommits ShowFormat = "branch-commits"
	ShowCommits       ShowFormat = "commits"
	ShowDebug         ShowFormat = "debug"
	ShowList          ShowFormat = "list"
)

// Config is the plain, fully-populated record every other component reads
// from. All fields are present; the loader supplies defaults for anything
// absent from Git config.
type Config struct {
	ProtectedBranchGlobs []string
	ProtectCommitCount   int
	ProtectCommitAge     time.Duration
	AutoBaseCommitCount  int
	Stack                StackSelector
	PushRemote           string
	PullRemote           string
	ShowFormat           ShowFormat
	ShowStacked          bool
	AutoFixup            AutoFixupMode
	AutoRepair           bool
	GPGSign              bool
	ForeignProtection    bool
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		ProtectedBranchGlobs: []string{"main", "master"},
		ProtectCommitCount:   0,
		ProtectCommitAge:     0,
		AutoBaseCommitCount:  500,
		Stack:                StackCurrent,
		PushRemote:           "origin",
		PullRemote:           "origin",
		ShowFormat:           ShowBranches,
		ShowStacked:          true,
		AutoFixup:            AutoFixupIgnore,
		AutoRepair:           false,
		GPGSign:              false,
		ForeignProtection:    true,
	}
}
