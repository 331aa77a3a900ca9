// Package build runs the aggregate documentation build.
//
// Every configured component is cloned into the build directory and its
// documentation built into the output directory by the external builder
// command. Components are processed sequentially in configuration order; a
// failing component is recorded and the remaining components still run, so
// one run reports every broken component at once.
//
// The package also defines sentinel errors for the stage a component failed
// in. They are always wrapped with the underlying cause.
package build
