package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
)

// Repository is the repository whose documentation gets published.
type Repository struct {
	repo *git.Repository
	root string
}

// Open opens the repository containing dir.
func Open(dir string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryGit, "open repository").
			Fatal().WithContext(logfields.KeyDir, dir).Build()
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryGit, "repository has no worktree").
			Fatal().WithContext(logfields.KeyDir, dir).Build()
	}
	return &Repository{repo: repo, root: wt.Filesystem.Root()}, nil
}

// Root returns the worktree root.
func (r *Repository) Root() string { return r.root }

// HasRemoteBranch reports whether the remote-tracking ref remote/branch exists.
func (r *Repository) HasRemoteBranch(remote, branch string) (bool, error) {
	_, err := r.repo.Reference(plumbing.NewRemoteReferenceName(remote, branch), true)
	if err == nil {
		return true, nil
	}
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	return false, errors.WrapError(err, errors.CategoryGit, "resolve remote branch").
		WithContext(logfields.KeyBranch, remote+"/"+branch).Build()
}

// SeedOrphanBranch creates branch as a parentless commit holding the files
// at the worktree root that match glob. The worktree, index and HEAD are not
// touched. It returns the names of the committed files. An existing local
// branch is never overwritten.
func (r *Repository) SeedOrphanBranch(branch, glob string) ([]string, error) {
	refName := plumbing.NewBranchReferenceName(branch)
	switch existing, err := r.repo.Reference(refName, false); {
	case err == nil:
		return nil, errors.GitError(fmt.Sprintf("local branch %s already exists; push or delete it first", branch)).
			Fatal().
			WithContext(logfields.KeyBranch, branch).
			WithContext("commit", existing.Hash().String()).Build()
	case !stderrors.Is(err, plumbing.ErrReferenceNotFound):
		return nil, errors.WrapError(err, errors.CategoryGit, "read branch").
			WithContext(logfields.KeyBranch, branch).Build()
	}

	matches, err := filepath.Glob(filepath.Join(r.root, glob))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid seed pattern").
			Fatal().WithContext("pattern", glob).Build()
	}

	var entries []object.TreeEntry
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "read seed file").
				WithContext(logfields.KeyPath, path).Build()
		}
		hash, err := r.writeBlob(data)
		if err != nil {
			return nil, err
		}
		mode := filemode.Regular
		if info.Mode()&0o111 != 0 {
			mode = filemode.Executable
		}
		entries = append(entries, object.TreeEntry{Name: filepath.Base(path), Mode: mode, Hash: hash})
	}
	slices.SortFunc(entries, func(a, b object.TreeEntry) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})

	tree := &object.Tree{Entries: entries}
	treeHash, err := r.store(tree.Encode)
	if err != nil {
		return nil, err
	}

	sig := r.signature()
	commit := &object.Commit{
		Author:    sig,
		Committer: sig,
		Message:   fmt.Sprintf("Create %s branch\n", branch),
		TreeHash:  treeHash,
	}
	commitHash, err := r.store(commit.Encode)
	if err != nil {
		return nil, err
	}

	ref := plumbing.NewHashReference(refName, commitHash)
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return nil, errors.WrapError(err, errors.CategoryGit, "create branch").
			Fatal().WithContext(logfields.KeyBranch, branch).Build()
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names, nil
}

// Push pushes the local branch to the same name on remote.
func (r *Repository) Push(ctx context.Context, remote, branch string, auth transport.AuthMethod) error {
	ref := plumbing.NewBranchReferenceName(branch)
	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(ref + ":" + ref)},
		Auth:       auth,
	})
	if err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		return classify("push", remote, err)
	}
	return nil
}

// RemoteURL returns the first URL of the named remote.
func (r *Repository) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryGit, "unknown remote").
			Fatal().WithContext("remote", name).Build()
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errors.GitError("remote has no URL").Fatal().WithContext("remote", name).Build()
	}
	return urls[0], nil
}

func (r *Repository) writeBlob(data []byte) (plumbing.Hash, error) {
	return r.store(func(o plumbing.EncodedObject) error {
		o.SetType(plumbing.BlobObject)
		o.SetSize(int64(len(data)))
		w, err := o.Writer()
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return err
		}
		return w.Close()
	})
}

func (r *Repository) store(encode func(plumbing.EncodedObject) error) (plumbing.Hash, error) {
	obj := r.repo.Storer.NewEncodedObject()
	if err := encode(obj); err != nil {
		return plumbing.ZeroHash, errors.WrapError(err, errors.CategoryGit, "encode object").Fatal().Build()
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, errors.WrapError(err, errors.CategoryGit, "store object").Fatal().Build()
	}
	return hash, nil
}

func (r *Repository) signature() object.Signature {
	sig := object.Signature{Name: "blueprintdocs", Email: "blueprintdocs@localhost", When: time.Now()}
	cfg, err := r.repo.ConfigScoped(gitconfig.GlobalScope)
	if err != nil {
		return sig
	}
	if cfg.User.Name != "" {
		sig.Name = cfg.User.Name
	}
	if cfg.User.Email != "" {
		sig.Email = cfg.User.Email
	}
	return sig
}
