// Package blueprint loads descriptor (blueprint) YAML files and exposes the
// declared node types, relationships and data types as a consumable registry.
//
// Several descriptor files, local or remote, are merged in order with a
// recursive mapping merge. Rendering takes entries out of the registry; what
// remains at the end of a build was declared but never documented.
package blueprint
