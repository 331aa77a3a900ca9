// Package runner executes the external documentation tools.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/magefile/mage/sh"

	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
)

// ExitCodeKey is the error context key holding a failed command's exit code.
const ExitCodeKey = "exit_code"

// Command is one external tool invocation. Directories are passed as
// arguments; the process working directory is never changed.
type Command struct {
	Name string
	Args []string
	Env  map[string]string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// Shell runs commands through mage's sh package, streaming their output.
type Shell struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// NewShell returns a Shell writing to the process stdout and stderr.
func NewShell(logger *slog.Logger) *Shell {
	return &Shell{Stdout: os.Stdout, Stderr: os.Stderr, Logger: logger}
}

// Run executes cmd and waits for it. Cancellation is observed before the
// command starts.
func (s *Shell) Run(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Running command", logfields.Command(cmd.String()))

	args := append([]string(nil), cmd.Args...)
	ran, err := sh.Exec(cmd.Env, s.Stdout, s.Stderr, cmd.Name, args...)
	if err == nil {
		return nil
	}
	if !ran {
		return errors.WrapError(err, errors.CategoryTool, "command could not be started").
			Fatal().
			WithContext(logfields.KeyCommand, cmd.Name).Build()
	}
	code := sh.ExitStatus(err)
	return errors.WrapError(err, errors.CategoryTool, fmt.Sprintf("%s exited with code %d", cmd.Name, code)).
		WithContext(logfields.KeyCommand, cmd.Name).
		WithContext(ExitCodeKey, code).Build()
}

// ExitCode returns the exit code recorded on a command error, or -1.
func ExitCode(err error) int {
	ce, ok := errors.AsClassified(err)
	if !ok {
		return -1
	}
	if v, ok := ce.Context().Get(ExitCodeKey); ok {
		if code, ok := v.(int); ok {
			return code
		}
	}
	return -1
}

// Expand substitutes {key} placeholders in args. Unknown placeholders are
// left untouched.
func Expand(args []string, vars map[string]string) []string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}
