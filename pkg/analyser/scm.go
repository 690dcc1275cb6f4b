package analyser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"go.uber.org/multierr"
)

const scmLogPrefix = "analyser:scm"

// Checkout clones scmURL into memory and checks out revision, which may be a commit hash,
// a tag or a branch name. An empty revision means the remote HEAD.
func Checkout(ctx context.Context, scmURL, revision string) (billy.Filesystem, error) {
	slog.Info(fmt.Sprintf("%s - cloning %s at %q", scmLogPrefix, scmURL, revision))

	repo, err := git.CloneContext(ctx, memory.NewStorage(), memfs.New(), &git.CloneOptions{
		URL:        scmURL,
		NoCheckout: true,
		Tags:       git.AllTags,
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to clone %s: %w", scmLogPrefix, scmURL, err)
	}
	return checkoutRevision(repo, revision)
}

func checkoutRevision(repo *git.Repository, revision string) (billy.Filesystem, error) {
	hash, err := resolveRevision(repo, revision)
	if err != nil {
		return nil, err
	}

	w, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%s - worktree: %w", scmLogPrefix, err)
	}
	if err := w.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return nil, fmt.Errorf("%s - failed to check out %s: %w", scmLogPrefix, hash, err)
	}
	slog.Debug(fmt.Sprintf("%s - checked out %q as %s", scmLogPrefix, revision, hash))
	return w.Filesystem, nil
}

// resolveRevision also tries origin/<revision> because a fresh clone only has
// remote-tracking refs for branches other than the default one.
func resolveRevision(repo *git.Repository, revision string) (*plumbing.Hash, error) {
	if revision == "" {
		revision = "HEAD"
	}
	var errs error
	for _, candidate := range []string{revision, "origin/" + revision} {
		hash, err := repo.ResolveRevision(plumbing.Revision(candidate))
		if err == nil {
			return hash, nil
		}
		errs = multierr.Append(errs, err)
	}
	return nil, fmt.Errorf("%s - unknown revision %q: %w", scmLogPrefix, revision, errs)
}
