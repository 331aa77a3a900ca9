package blueprint

import "gopkg.in/yaml.v3"

// Merge recursively adds the contents of src to dst, both mapping nodes.
// Mapping values are merged, any other value in src replaces the one in dst.
// Existing keys keep their position, new keys are appended.
func Merge(dst, src *yaml.Node) {
	for _, kv := range pairs(src) {
		key, value := kv[0], kv[1]
		idx := lookup(dst, key.Value)
		if value.Kind == yaml.MappingNode {
			if idx < 0 {
				dst.Content = append(dst.Content, cloneScalar(key), newMapping())
				idx = len(dst.Content) - 2
			} else if deref(dst.Content[idx+1]).Kind != yaml.MappingNode {
				dst.Content[idx+1] = newMapping()
			} else {
				// detach from shared alias targets before mutating
				dst.Content[idx+1] = flatten(deref(dst.Content[idx+1]))
			}
			Merge(dst.Content[idx+1], value)
			continue
		}
		if idx < 0 {
			dst.Content = append(dst.Content, cloneScalar(key), value)
			continue
		}
		dst.Content[idx+1] = value
	}
}

// pairs returns the key/value pairs of a mapping with aliases resolved and
// merge keys ("<<") expanded in place. Explicit keys override merged ones.
func pairs(node *yaml.Node) [][2]*yaml.Node {
	node = deref(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	var out [][2]*yaml.Node
	index := map[string]int{}
	put := func(k, v *yaml.Node, override bool) {
		if i, ok := index[k.Value]; ok {
			if override {
				out[i][1] = v
			}
			return
		}
		index[k.Value] = len(out)
		out = append(out, [2]*yaml.Node{k, v})
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], deref(node.Content[i+1])
		if k.Tag != "!!merge" {
			put(k, v, true)
			continue
		}
		sources := []*yaml.Node{v}
		if v.Kind == yaml.SequenceNode {
			sources = v.Content
		}
		for _, s := range sources {
			for _, kv := range pairs(s) {
				put(kv[0], kv[1], false)
			}
		}
	}
	return out
}

func flatten(node *yaml.Node) *yaml.Node {
	out := newMapping()
	for _, kv := range pairs(node) {
		out.Content = append(out.Content, kv[0], kv[1])
	}
	return out
}

func lookup(mapping *yaml.Node, key string) int {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func deref(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func cloneScalar(n *yaml.Node) *yaml.Node {
	cp := *n
	return &cp
}

// documentRoot returns the top-level mapping of a parsed document.
func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return newMapping()
		}
		doc = doc.Content[0]
	}
	doc = deref(doc)
	if doc.Kind == 0 || (doc.Kind == yaml.ScalarNode && doc.Tag == "!!null") {
		return newMapping()
	}
	return doc
}
