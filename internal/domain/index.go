package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// IndexName is the document name of the generated index page.
func (d *Domain) IndexName() string { return d.opts.Name + "-index" }

// IndexPage renders a Markdown page listing every documented object,
// grouped by kind, linked relative to the index document.
func (d *Domain) IndexPage(suffix string) []byte {
	if suffix == "" {
		suffix = DefaultLinkSuffix
	}
	objects := d.Objects()
	index := d.IndexName()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s index\n\n", d.opts.Title)
	if len(objects) == 0 {
		b.WriteString("No objects have been documented.\n")
		return []byte(b.String())
	}
	for _, k := range kinds {
		first := true
		for _, obj := range objects {
			if obj.Type != k.Name {
				continue
			}
			if first {
				fmt.Fprintf(&b, "## %s\n\n", k.Label)
				first = false
			}
			href := relativeDoc(index, obj.DocName) + suffix + "#" + obj.Anchor
			fmt.Fprintf(&b, "- [`%s`](%s)\n", obj.DisplayName, href)
		}
		if !first {
			b.WriteString("\n")
		}
	}
	return []byte(b.String())
}

type inventory struct {
	Domain  string   `json:"domain"`
	Title   string   `json:"title"`
	Objects []Object `json:"objects"`
}

// Inventory serializes the registered objects as JSON.
func (d *Domain) Inventory() ([]byte, error) {
	objects := d.Objects()
	if objects == nil {
		objects = []Object{}
	}
	return json.MarshalIndent(inventory{Domain: d.opts.Name, Title: d.opts.Title, Objects: objects}, "", "  ")
}
