package git

import (
	stderrors "errors"
	"net"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
)

// classify wraps go-git failures into classified errors. Authentication,
// missing repositories and unsupported protocols are permanent; everything
// else may be retried.
func classify(op, url string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	var b *errors.ErrorBuilder
	switch {
	case stderrors.Is(err, transport.ErrAuthenticationRequired),
		stderrors.Is(err, transport.ErrAuthorizationFailed),
		strings.Contains(msg, "authentication"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "invalid username or password"):
		b = errors.WrapError(err, errors.CategoryAuth, op+" failed: authentication").Fatal()
	case stderrors.Is(err, transport.ErrRepositoryNotFound),
		strings.Contains(msg, "repository not found"),
		strings.Contains(msg, "repository does not exist"):
		b = errors.WrapError(err, errors.CategoryNotFound, op+" failed: repository not found").Fatal()
	case stderrors.Is(err, transport.ErrInvalidAuthMethod),
		strings.Contains(msg, "unsupported protocol"),
		strings.Contains(msg, "protocol not supported"):
		b = errors.WrapError(err, errors.CategoryGit, op+" failed: unsupported protocol").Fatal()
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		b = errors.WrapError(err, errors.CategoryNetwork, op+" failed: rate limited").RateLimit()
	default:
		var nerr net.Error
		if stderrors.As(err, &nerr) {
			b = errors.WrapError(err, errors.CategoryNetwork, op+" failed").Retryable()
		} else {
			b = errors.WrapError(err, errors.CategoryGit, op+" failed").Retryable()
		}
	}
	return b.WithContext(logfields.KeyURL, url).Build()
}

// IsPermanent reports whether err should not be retried.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	ce, ok := errors.AsClassified(err)
	if !ok {
		return false
	}
	return !ce.CanRetry()
}
