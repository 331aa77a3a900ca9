package domain

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/blueprintdocs/internal/blueprint"
	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
	"git.home.luguber.info/inful/blueprintdocs/internal/markdown"
)

// Expand replaces every directive of the domain in source with its rendered
// Markdown and records the documented objects under docname (the page path
// relative to the site root, without extension).
func (d *Domain) Expand(docname string, source []byte) ([]byte, error) {
	directives := markdown.FindDirectives(source, d.opts.Name)
	if len(directives) == 0 {
		return source, nil
	}
	edits := make([]markdown.Edit, 0, len(directives))
	for _, dir := range directives {
		out, err := d.render(docname, dir)
		if err != nil {
			return nil, err
		}
		edits = append(edits, markdown.Edit{Start: dir.Start, End: dir.End, Replacement: []byte(out)})
	}
	return markdown.Apply(source, edits)
}

func (d *Domain) render(docname string, dir markdown.Directive) (string, error) {
	kind, ok := KindByRole(dir.Kind)
	if !ok {
		return "", errors.RenderError(fmt.Sprintf("unknown directive %s:%s", dir.Domain, dir.Kind)).
			WithContext(logfields.KeyDoc, docname).
			WithContext("line", dir.Line).Build()
	}
	sig := strings.TrimSpace(dir.Argument)
	if sig == "" {
		return "", errors.RenderError(fmt.Sprintf("%s:%s directive requires a type name", dir.Domain, dir.Kind)).
			WithContext(logfields.KeyDoc, docname).
			WithContext("line", dir.Line).Build()
	}

	_, noindex := dir.Options["noindex"]
	anchor := !noindex
	var typ *blueprint.Type
	if _, seen := d.lookup(kind, sig); seen && !noindex {
		// Rendered again from the registry without consuming it.
		d.logger.Warn("Duplicate object description",
			logfields.Kind(kind.Name), logfields.Type(sig), logfields.Doc(docname))
		typ, ok = d.registry.Lookup(kind.Section, sig)
		if !ok {
			return "", d.undeclared(kind, sig, docname, dir.Line)
		}
		anchor = false
	} else {
		var err error
		if typ, err = d.registry.Take(kind.Section, sig); err != nil {
			// Consumed earlier by a :noindex: description: render it again
			// from the registry.
			var declared bool
			if typ, declared = d.registry.Lookup(kind.Section, sig); !declared {
				return "", errors.WrapError(err, errors.CategoryRender, "cannot document "+sig).
					Fatal().
					WithContext(logfields.KeyDoc, docname).
					WithContext(logfields.KeyKind, kind.Name).
					WithContext("line", dir.Line).Build()
			}
			d.logger.Debug("Describing already consumed type",
				logfields.Kind(kind.Name), logfields.Type(sig), logfields.Doc(docname))
		}
		if !noindex {
			d.register(kind, sig, docname)
		}
	}

	var b strings.Builder
	if anchor {
		fmt.Fprintf(&b, "<a id=\"%s\"></a>\n\n", sig)
	}
	fmt.Fprintf(&b, "### `%s`\n\n", sig)
	if body := strings.TrimSpace(dir.Body); body != "" {
		b.WriteString(body)
		b.WriteString("\n\n")
	}
	if typ.DerivedFrom != "" {
		fmt.Fprintf(&b, "Derived from: {%s:%s}`%s`\n\n", d.opts.Name, kind.Role, typ.DerivedFrom)
	}
	if len(typ.Properties) > 0 {
		b.WriteString("**Properties:**\n\n")
		for _, p := range typ.Properties {
			if !p.HasDescription {
				return "", errors.RenderError(fmt.Sprintf("%s property %s has no description", sig, p.Name)).
					WithContext(logfields.KeyType, sig).
					WithContext(logfields.KeyProperty, p.Name).
					WithContext(logfields.KeyDoc, docname).Build()
			}
			writeProperty(&b, p)
		}
	}
	return b.String(), nil
}

func (d *Domain) undeclared(kind Kind, sig, docname string, line int) error {
	return errors.RenderError(fmt.Sprintf("%s is not declared in %s", sig, kind.Section)).
		WithContext(logfields.KeyDoc, docname).
		WithContext(logfields.KeyType, sig).
		WithContext("line", line).Build()
}

// writeProperty emits one definition list item: the info line, then the
// dedented description.
func writeProperty(b *strings.Builder, p blueprint.Property) {
	desc := dedent(p.Description)
	var lines []string
	if info := PropertyInfo(p); info != "" {
		lines = append(lines, info)
		if len(desc) > 0 {
			lines = append(lines, "")
		}
	}
	lines = append(lines, desc...)
	if len(lines) == 0 {
		lines = []string{""}
	}

	b.WriteString(p.Name)
	b.WriteString("\n")
	for i, line := range lines {
		switch {
		case i == 0:
			b.WriteString(":   " + line)
		case line == "":
		default:
			b.WriteString("    " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// PropertyInfo returns the info line of a property: its default when one is
// set and not empty, "**required**" for required properties without a
// default, or nothing.
func PropertyInfo(p blueprint.Property) string {
	if def, ok := p.Default(); ok {
		if def == "" {
			return ""
		}
		return "**default:** " + def
	}
	if p.Required {
		return "**required**"
	}
	return ""
}

// dedent strips the first line and removes the common indentation of the
// others. Leading and trailing blank lines are dropped.
func dedent(s string) []string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(strings.ReplaceAll(lines[i], "\t", "        "), " ")
	}
	if len(lines) > 0 {
		lines[0] = strings.TrimLeft(lines[0], " ")
	}
	indent := -1
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " "))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= indent {
				lines[i] = lines[i][indent:]
			}
		}
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
