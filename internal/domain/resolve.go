package domain

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
	"git.home.luguber.info/inful/blueprintdocs/internal/markdown"
)

// Resolve rewrites every role of the domain in source into a link relative
// to docname. suffix is appended to target document names (".md" or
// ".html"). Unresolved roles become inline code.
func (d *Domain) Resolve(docname string, source []byte, suffix string) ([]byte, error) {
	roles := markdown.FindRoles(source, d.opts.Name)
	if len(roles) == 0 {
		return source, nil
	}
	if suffix == "" {
		suffix = DefaultLinkSuffix
	}
	edits := make([]markdown.Edit, 0, len(roles))
	for _, r := range roles {
		text := fmt.Sprintf("`%s`", r.Display())
		if href, ok := d.href(docname, r, suffix); ok {
			text = fmt.Sprintf("[%s](%s)", text, href)
		}
		edits = append(edits, markdown.Edit{Start: r.Start, End: r.End, Replacement: []byte(text)})
	}
	return markdown.Apply(source, edits)
}

func (d *Domain) href(docname string, r markdown.Role, suffix string) (string, bool) {
	kind, ok := KindByRole(r.Kind)
	if !ok {
		d.logger.Debug("Unknown role", logfields.Kind(r.Kind), logfields.Doc(docname))
		return "", false
	}
	obj, ok := d.lookup(kind, r.Target)
	if !ok {
		d.logger.Debug("Unresolved reference",
			logfields.Kind(kind.Name), logfields.Target(r.Target), logfields.Doc(docname))
		return "", false
	}
	fragment := "#" + url.PathEscape(obj.Anchor)
	if obj.DocName == docname {
		return fragment, true
	}
	return relativeDoc(docname, obj.DocName) + suffix + fragment, true
}

// relativeDoc returns the path of to relative to the directory of from.
// Both are slash separated document names.
func relativeDoc(from, to string) string {
	fromDir := path.Dir(from)
	if fromDir == "." {
		return to
	}
	fromParts := splitPath(fromDir)
	toParts := splitPath(to)
	common := 0
	for common < len(fromParts) && common < len(toParts)-1 && fromParts[common] == toParts[common] {
		common++
	}
	var rel []string
	for range fromParts[common:] {
		rel = append(rel, "..")
	}
	rel = append(rel, toParts[common:]...)
	return path.Join(rel...)
}

func splitPath(p string) []string {
	return strings.Split(path.Clean(p), "/")
}
