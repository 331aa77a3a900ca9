package blueprint

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
)

// Undocumented names a registry entry that was never taken.
type Undocumented struct {
	Section string
	Name    string
}

func (u Undocumented) String() string {
	return fmt.Sprintf("%s from %s", u.Name, u.Section)
}

type section struct {
	order []string
	types map[string]*Type
	taken map[string]bool
}

// Registry holds the merged declarations of one build. Take consumes
// entries so that Remaining reports what was declared but not rendered.
type Registry struct {
	mu       sync.Mutex
	sections map[string]*section
}

// NewRegistry decodes the known sections of a merged blueprint document.
// Other top-level keys (plugins, imports, workflows) are ignored.
func NewRegistry(root *yaml.Node) (*Registry, error) {
	r := &Registry{sections: make(map[string]*section)}
	root = documentRoot(root)
	if root.Kind != yaml.MappingNode {
		return nil, errors.BlueprintError("blueprint document must be a mapping").
			WithContext("line", root.Line).Build()
	}
	for _, name := range Sections() {
		s := &section{types: make(map[string]*Type), taken: make(map[string]bool)}
		r.sections[name] = s
		idx := lookup(root, name)
		if idx < 0 {
			continue
		}
		value := deref(root.Content[idx+1])
		if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
			continue
		}
		if value.Kind != yaml.MappingNode {
			return nil, errors.BlueprintError(name+" must be a mapping").
				WithContext(logfields.KeySection, name).Build()
		}
		for _, kv := range pairs(value) {
			t := &Type{}
			body := deref(kv[1])
			if !(body.Kind == yaml.ScalarNode && body.Tag == "!!null") {
				if err := body.Decode(t); err != nil {
					return nil, errors.WrapError(err, errors.CategoryBlueprint, "decode type").
						Fatal().
						WithContext(logfields.KeySection, name).
						WithContext(logfields.KeyType, kv[0].Value).Build()
				}
			}
			t.Name = kv[0].Value
			t.Section = name
			s.order = append(s.order, t.Name)
			s.types[t.Name] = t
		}
	}
	return r, nil
}

func (r *Registry) section(name string) (*section, error) {
	s, ok := r.sections[name]
	if !ok {
		return nil, errors.BlueprintError("unknown blueprint section").
			WithContext(logfields.KeySection, name).Build()
	}
	return s, nil
}

// Take removes and returns a declared type. Unknown names and names that
// were already taken are errors.
func (r *Registry) Take(sectionName, name string) (*Type, error) {
	name = strings.TrimSpace(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.section(sectionName)
	if err != nil {
		return nil, err
	}
	t, ok := s.types[name]
	if !ok {
		return nil, errors.BlueprintError(fmt.Sprintf("%s is not declared in %s", name, sectionName)).
			WithContext(logfields.KeySection, sectionName).
			WithContext(logfields.KeyType, name).Build()
	}
	if s.taken[name] {
		return nil, errors.BlueprintError(fmt.Sprintf("%s from %s has already been documented", name, sectionName)).
			WithContext(logfields.KeySection, sectionName).
			WithContext(logfields.KeyType, name).Build()
	}
	s.taken[name] = true
	return t, nil
}

// Lookup returns a declared type without consuming it.
func (r *Registry) Lookup(sectionName, name string) (*Type, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sections[sectionName]
	if !ok {
		return nil, false
	}
	t, ok := s.types[strings.TrimSpace(name)]
	return t, ok
}

// Names lists every declared type of a section in declaration order.
func (r *Registry) Names(sectionName string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sections[sectionName]
	if !ok {
		return nil
	}
	return slices.Clone(s.order)
}

// Remaining lists the entries that were never taken, sorted by section
// (in the given order) and then by name. No sections means all of them.
func (r *Registry) Remaining(sections ...string) []Undocumented {
	if len(sections) == 0 {
		sections = Sections()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Undocumented
	for _, name := range sections {
		s, ok := r.sections[name]
		if !ok {
			continue
		}
		var left []string
		for _, t := range s.order {
			if !s.taken[t] {
				left = append(left, t)
			}
		}
		slices.Sort(left)
		for _, t := range left {
			out = append(out, Undocumented{Section: name, Name: t})
		}
	}
	return out
}

// Reset makes every entry available again, for re-rendering in watch mode.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sections {
		clear(s.taken)
	}
}
