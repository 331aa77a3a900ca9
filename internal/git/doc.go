// Package git wraps go-git for the two repository operations the tool
// needs: cloning component repositories and seeding the pages branch of
// the current repository.
package git
