package gitio

import (
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitID is an opaque commit object identity. It wraps go-git's hash so
// callers outside this package never import go-git directly.
type CommitID struct {
	hash plumbing.Hash
}

// ZeroCommitID is the nil identity, used e.g. as "no parent".
var ZeroCommitID = CommitID{}

// NewCommitID builds a CommitID from a hex string.
func NewCommitID(hex string) CommitID {
	return CommitID{hash: plumbing.NewHash(hex)}
}

// String returns the hex representation.
func (c CommitID) String() string { return c.hash.String() }

// IsZero reports whether this is the nil identity.
func (c CommitID) IsZero() bool { return c.hash.IsZero() }

// Less gives the only total order spec.md defines for CommitId: a tie-break
// ordering by hex string, with no causal meaning.
func (c CommitID) Less(other CommitID) bool {
	return c.hash.String() < other.hash.String()
}

// Commit is the immutable view of a commit object. Rewrites never mutate a
// Commit value; they produce a new CommitID via Repo.Rewrite.
type Commit struct {
	ID       CommitID
	Parents  []CommitID
	Author   Signature
	Composer Signature // committer; named to avoid stutter with Author below
	Summary  string
	Body     string
	TreeID   CommitID
}

// Committer is the commit's committer signature (alias for readability at
// call sites that don't care about the "Composer" naming above).
func (c Commit) Committer() Signature { return c.Composer }

// Signature is an author or committer identity and timestamp.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

func fromObjectCommit(oc *object.Commit) Commit {
	parents := make([]CommitID, 0, len(oc.ParentHashes))
	for _, h := range oc.ParentHashes {
		parents = append(parents, CommitID{hash: h})
	}
	summary, body := splitMessage(oc.Message)
	return Commit{
		ID:      CommitID{hash: oc.Hash},
		Parents: parents,
		Author: Signature{
			Name:  oc.Author.Name,
			Email: oc.Author.Email,
			When:  oc.Author.When,
		},
		Composer: Signature{
			Name:  oc.Committer.Name,
			Email: oc.Committer.Email,
			When:  oc.Committer.When,
		},
		Summary: summary,
		Body:    body,
		TreeID:  CommitID{hash: oc.TreeHash},
	}
}

func splitMessage(msg string) (summary, body string) {
	for i, r := range msg {
		if r == '\n' {
			rest := msg[i+1:]
			for len(rest) > 0 && rest[0] == '\n' {
				rest = rest[1:]
			}
			return msg[:i], rest
		}
	}
	return msg, ""
}
