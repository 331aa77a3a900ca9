// Package errors provides the classified error type used across blueprintdocs.
//
// A ClassifiedError carries a category (config, git, build, blueprint, ...),
// a severity, a retry strategy and structured context. Errors are created via
// the fluent ErrorBuilder:
//
//	err := errors.NewError(errors.CategoryGit, "clone failed").
//		WithCause(cause).
//		WithContext("component", name).
//		Retryable().
//		Build()
//
// CLIErrorAdapter maps classified errors to process exit codes and
// user-facing messages.
package errors
