package blueprint

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Section names of a blueprint document.
const (
	SectionNodeTypes     = "node_types"
	SectionRelationships = "relationships"
	SectionDataTypes     = "data_types"
)

// Sections lists the registry sections in document order.
func Sections() []string {
	return []string{SectionNodeTypes, SectionRelationships, SectionDataTypes}
}

// Type is one declared node type, relationship or data type.
type Type struct {
	Name        string     `yaml:"-"`
	Section     string     `yaml:"-"`
	DerivedFrom string     `yaml:"derived_from"`
	Description string     `yaml:"description"`
	Properties  Properties `yaml:"properties"`
}

// Property describes a single type property.
type Property struct {
	Name        string
	Description string
	// HasDescription is false when the description key is absent or null.
	HasDescription bool
	Type           string
	Required       bool
	defaultValue   *yaml.Node
}

// Default returns the rendered default value. ok is false when no default
// (or a null one) was declared.
func (p Property) Default() (value string, ok bool) {
	n := deref(p.defaultValue)
	if n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null") {
		return "", false
	}
	if n.Kind == yaml.ScalarNode {
		return n.Value, true
	}
	flow := *n
	flow.Style = yaml.FlowStyle
	out, err := yaml.Marshal(&flow)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(out)), true
}

type rawProperty struct {
	Description *string   `yaml:"description"`
	Type        string    `yaml:"type"`
	Default     yaml.Node `yaml:"default"`
	Required    *bool     `yaml:"required"`
}

// Properties keeps properties in declaration order.
type Properties []Property

// UnmarshalYAML decodes a properties mapping without losing key order.
func (ps *Properties) UnmarshalYAML(node *yaml.Node) error {
	node = deref(node)
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*ps = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: properties must be a mapping", node.Line)
	}
	out := make(Properties, 0, len(node.Content)/2)
	for _, kv := range pairs(node) {
		var raw rawProperty
		value := deref(kv[1])
		if !(value.Kind == yaml.ScalarNode && value.Tag == "!!null") {
			if err := value.Decode(&raw); err != nil {
				return fmt.Errorf("property %s: %w", kv[0].Value, err)
			}
		}
		p := Property{Name: kv[0].Value, Type: raw.Type, Required: true}
		if raw.Description != nil {
			p.Description = *raw.Description
			p.HasDescription = true
		}
		if raw.Required != nil {
			p.Required = *raw.Required
		}
		if raw.Default.Kind != 0 {
			d := raw.Default
			p.defaultValue = &d
		}
		out = append(out, p)
	}
	*ps = out
	return nil
}

// Property looks up a property by name.
func (t *Type) Property(name string) (Property, bool) {
	for _, p := range t.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}
