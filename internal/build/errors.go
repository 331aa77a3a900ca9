package build

import "errors"

// Sentinel errors naming the stage a component failed in.
var (
	ErrClone = errors.New("blueprintdocs: clone error")
	ErrBuild = errors.New("blueprintdocs: build error")
)
