package git

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/blueprintdocs/internal/config"
	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
	"git.home.luguber.info/inful/blueprintdocs/internal/retry"
)

// Client clones component repositories.
type Client struct {
	Policy retry.Policy
	// Progress receives clone progress output; nil discards it.
	Progress io.Writer
	Logger   *slog.Logger
}

// NewClient creates a client using the given retry policy.
func NewClient(policy retry.Policy, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{Policy: policy, Logger: logger}
}

// EnsureClone clones the component repository into dir unless dir already
// exists. Existing checkouts are left alone: the documentation tool reads
// branches and tags straight from the remote. cloned reports whether a
// clone happened.
func (c *Client) EnsureClone(ctx context.Context, comp config.Component, dir string) (cloned bool, err error) {
	if _, err := os.Stat(dir); err == nil {
		c.logger().Debug("Repository directory exists, skipping clone",
			logfields.Component(comp.Name), logfields.Dir(dir))
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, errors.WrapError(err, errors.CategoryFileSystem, "stat clone directory").
			WithContext(logfields.KeyDir, dir).Build()
	}

	auth, err := AuthMethod(comp.Auth)
	if err != nil {
		return false, errors.WrapError(err, errors.CategoryAuth, "setup authentication").
			Fatal().WithContext(logfields.KeyComponent, comp.Name).Build()
	}

	c.logger().Info("Cloning repository",
		logfields.Component(comp.Name), logfields.URL(comp.Repo), logfields.Dir(dir))

	err = c.Policy.Do(ctx, "clone "+comp.Name, IsPermanent, func() error {
		repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:      comp.Repo,
			Auth:     auth,
			Progress: c.Progress,
		})
		if err != nil {
			// a partial clone would make the next attempt skip the clone
			_ = os.RemoveAll(dir)
			return classify("clone", comp.Repo, err)
		}
		if head, herr := repo.Head(); herr == nil {
			c.logger().Debug("Repository cloned",
				logfields.Component(comp.Name), slog.String("commit", head.Hash().String()[:8]))
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// EnsureDir creates dir and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "resolve directory").
			WithContext(logfields.KeyDir, dir).Build()
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "create directory").
			WithContext(logfields.KeyDir, abs).Build()
	}
	return abs, nil
}
