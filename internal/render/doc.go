// Package render turns a Markdown source tree using the cfy directives and
// roles into plain Markdown (or HTML) a documentation generator can consume.
//
// Rendering runs in two passes over every page. The first expands the
// directives, which consumes blueprint types and fills the object
// inventory; the second resolves roles once the inventory is complete, so
// a page may reference objects documented by any other page. An index page
// and an objects.json inventory are written next to the pages.
package render
