// Package frontmatter splits and rewrites the YAML frontmatter of Markdown
// pages. Field order and newline style survive a rewrite.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates a document that opens a frontmatter
// block but never closes it.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Document is a Markdown page split into frontmatter and body.
type Document struct {
	// Fields is the frontmatter mapping; nil when the page has none.
	Fields  *yaml.Node
	Body    []byte
	newline string
}

// Parse splits content. Pages without frontmatter have nil Fields and the
// whole input as Body.
func Parse(content []byte) (*Document, error) {
	nl := detectNewline(content)
	doc := &Document{Body: content, newline: nl}

	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return doc, nil
	}
	rest := content[len(open):]

	var raw []byte
	switch {
	case bytes.HasPrefix(rest, open):
		doc.Body = rest[len(open):]
	default:
		closing := []byte(nl + "---" + nl)
		idx := bytes.Index(rest, closing)
		if idx < 0 {
			if !bytes.HasSuffix(rest, []byte(nl+"---")) {
				return nil, ErrMissingClosingDelimiter
			}
			idx = len(rest) - len(nl) - 3
			doc.Body = nil
		} else {
			doc.Body = rest[idx+len(closing):]
		}
		raw = rest[:idx+len(nl)]
	}

	doc.Fields = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if len(bytes.TrimSpace(raw)) == 0 {
		return doc, nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	if len(node.Content) == 0 {
		return doc, nil
	}
	if node.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("frontmatter must be a mapping")
	}
	doc.Fields = node.Content[0]
	return doc, nil
}

// Get returns a scalar field.
func (d *Document) Get(key string) (string, bool) {
	if d.Fields == nil {
		return "", false
	}
	for i := 0; i+1 < len(d.Fields.Content); i += 2 {
		if d.Fields.Content[i].Value == key && d.Fields.Content[i+1].Kind == yaml.ScalarNode {
			return d.Fields.Content[i+1].Value, true
		}
	}
	return "", false
}

// Set upserts a string field, appending new keys. It creates the
// frontmatter block when the page had none.
func (d *Document) Set(key, value string) {
	if d.Fields == nil {
		d.Fields = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	v := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
	for i := 0; i+1 < len(d.Fields.Content); i += 2 {
		if d.Fields.Content[i].Value == key {
			d.Fields.Content[i+1] = v
			return
		}
	}
	d.Fields.Content = append(d.Fields.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, v)
}

// Without returns the serialized frontmatter minus the named keys, with LF
// newlines and no trailing newline.
func (d *Document) Without(keys ...string) (string, error) {
	if d.Fields == nil {
		return "", nil
	}
	skip := make(map[string]bool, len(keys))
	for _, k := range keys {
		skip[k] = true
	}
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(d.Fields.Content); i += 2 {
		if !skip[d.Fields.Content[i].Value] {
			m.Content = append(m.Content, d.Fields.Content[i], d.Fields.Content[i+1])
		}
	}
	if len(m.Content) == 0 {
		return "", nil
	}
	out, err := encode(m)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

// Bytes reassembles the page using the newline style of the input.
func (d *Document) Bytes() ([]byte, error) {
	if d.Fields == nil {
		return d.Body, nil
	}
	nl := d.newline
	if nl == "" {
		nl = "\n"
	}
	var fm []byte
	if len(d.Fields.Content) > 0 {
		var err error
		if fm, err = encode(d.Fields); err != nil {
			return nil, err
		}
		if nl != "\n" {
			fm = bytes.ReplaceAll(fm, []byte("\n"), []byte(nl))
		}
	}
	out := make([]byte, 0, len(fm)+len(d.Body)+8)
	out = append(out, "---"+nl...)
	out = append(out, fm...)
	out = append(out, "---"+nl...)
	out = append(out, d.Body...)
	return out, nil
}

func encode(n *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
