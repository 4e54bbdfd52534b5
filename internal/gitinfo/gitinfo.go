// Package gitinfo reads metadata from the git repository that contains a
// project directory.
package gitinfo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Head describes the commit HEAD points at.
type Head struct {
	Hash        string
	Branch      string
	AuthorName  string
	AuthorEmail string
}

// ShortHash returns the first seven characters of the commit hash.
func (h Head) ShortHash() string {
	if len(h.Hash) > 7 {
		return h.Hash[:7]
	}
	return h.Hash
}

// ErrNoRepository is returned when dir is not inside a git work tree.
var ErrNoRepository = errors.New("not a git repository")

// ReadHead opens the repository containing dir, searching parent directories
// for .git, and returns the HEAD commit.
func ReadHead(dir string) (Head, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return Head{}, ErrNoRepository
		}
		return Head{}, fmt.Errorf("open repository: %w", err)
	}
	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return Head{}, fmt.Errorf("repository has no commits: %w", err)
		}
		return Head{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return Head{}, fmt.Errorf("read commit %s: %w", ref.Hash(), err)
	}
	h := Head{
		Hash:        ref.Hash().String(),
		AuthorName:  strings.TrimSpace(commit.Author.Name),
		AuthorEmail: strings.TrimSpace(commit.Author.Email),
	}
	if ref.Name().IsBranch() {
		h.Branch = ref.Name().Short()
	}
	return h, nil
}

// HeadAuthor returns the author name of the HEAD commit, or "" when it cannot
// be determined.
func HeadAuthor(dir string) string {
	h, err := ReadHead(dir)
	if err != nil {
		return ""
	}
	return h.AuthorName
}
