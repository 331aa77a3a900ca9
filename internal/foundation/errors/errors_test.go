package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("builder", func(t *testing.T) {
		cause := stderrors.New("connection reset")
		err := WrapError(cause, CategoryNetwork, "fetch blueprint").
			Warning().
			Retryable().
			WithContext("url", "https://example.com/plugin.yaml").
			Build()

		require.Equal(t, CategoryNetwork, err.Category())
		require.Equal(t, SeverityWarning, err.Severity())
		require.Equal(t, RetryBackoff, err.RetryStrategy())
		require.True(t, err.CanRetry())
		require.ErrorIs(t, err, cause)

		url, ok := err.Context().GetString("url")
		require.True(t, ok)
		require.Equal(t, "https://example.com/plugin.yaml", url)
	})

	t.Run("with context copies", func(t *testing.T) {
		base := ConfigError("bad config").Build()
		derived := base.WithContext("file", "blueprintdocs.yaml")

		_, ok := base.Context().Get("file")
		require.False(t, ok)
		file, _ := derived.Context().GetString("file")
		require.Equal(t, "blueprintdocs.yaml", file)
		require.ErrorIs(t, derived, base)
	})

	t.Run("chain helpers", func(t *testing.T) {
		inner := BlueprintError("missing description").Build()
		wrapped := fmt.Errorf("render page: %w", inner)

		require.True(t, HasCategory(wrapped, CategoryBlueprint))
		require.Equal(t, CategoryBlueprint, GetCategory(wrapped))
		require.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
		require.False(t, IsRetryable(wrapped))
		require.True(t, IsRetryable(stderrors.New("plain")))
		require.False(t, IsRetryable(nil))
	})
}

func TestCLIErrorAdapter(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	a := NewCLIErrorAdapter(false, logger)

	cases := []struct {
		err  error
		code int
	}{
		{nil, 0},
		{stderrors.New("boom"), 1},
		{BuildError("components failed").Build(), 1},
		{ValidationError("branch required").Build(), 2},
		{ConfigError("missing file").Build(), 7},
		{GitError("clone").Build(), 8},
		{RenderError("page").Build(), 11},
		{InternalError("oops").Build(), 10},
	}
	for _, c := range cases {
		require.Equal(t, c.code, a.ExitCodeFor(c.err), "%v", c.err)
	}

	require.Equal(t, "missing file", a.FormatError(ConfigError("missing file").Build()))
	require.Equal(t, "Error: boom", a.FormatError(stderrors.New("boom")))

	var out bytes.Buffer
	exitCode := -1
	a.out = &out
	a.exit = func(code int) { exitCode = code }
	a.HandleError(ValidationError("branch required").WithContext("component", "x").Build())
	require.Equal(t, 2, exitCode)
	require.Contains(t, out.String(), "branch required")
	require.Contains(t, logs.String(), "component=x")
}
