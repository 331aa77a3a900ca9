package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Component is one external repository whose documentation is built into the aggregate site.
type Component struct {
	Name    string      `yaml:"-"`
	Repo    string      `yaml:"repo,omitempty"`
	Branch  string      `yaml:"branch"`
	DocsDir string      `yaml:"docs_dir,omitempty"`
	Auth    *AuthConfig `yaml:"auth,omitempty"`

	templated bool
}

// Components keeps the mapping order of the configuration file, which is the build order.
type Components []Component

// UnmarshalYAML decodes a name -> component mapping.
func (c *Components) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: components must be a mapping", node.Line)
	}
	out := make(Components, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var comp Component
		if v := node.Content[i+1]; v.Kind != yaml.ScalarNode || v.Tag != "!!null" {
			if err := v.Decode(&comp); err != nil {
				return err
			}
		}
		comp.Name = node.Content[i].Value
		out = append(out, comp)
	}
	*c = out
	return nil
}

// MarshalYAML encodes components back into a name -> component mapping.
func (c Components) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, comp := range c {
		var value yaml.Node
		if err := value.Encode(comp); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: comp.Name}, &value)
	}
	return node, nil
}

// Names returns component names in build order.
func (c Components) Names() []string {
	names := make([]string, 0, len(c))
	for _, comp := range c {
		names = append(names, comp.Name)
	}
	return names
}

// PluginName derives the build directory name from a component name by
// dropping the "cloudify-" prefix and "-plugin" suffix. A name with nothing
// between the two ("cloudify-plugin") is kept whole.
func PluginName(name string) string {
	rest, prefixed := strings.CutPrefix(name, "cloudify-")
	if prefixed && rest == "plugin" {
		return name
	}
	if dir := strings.TrimSuffix(rest, "-plugin"); dir != "" {
		return dir
	}
	return name
}

// DirName is the directory the component is cloned into and built to.
func (c Component) DirName() string { return PluginName(c.Name) }

func expandRepoTemplate(template, name string) string {
	return strings.ReplaceAll(template, "{name}", name)
}
