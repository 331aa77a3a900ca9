// Package domain implements the cfy documentation domain: directives that
// render blueprint types, roles that cross-reference them, and the object
// inventory built while rendering.
package domain

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"git.home.luguber.info/inful/blueprintdocs/internal/blueprint"
	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
)

const (
	DefaultName       = "cfy"
	DefaultTitle      = "Cloudify DSL"
	DefaultLinkSuffix = ".md"
)

// Options configures a Domain.
type Options struct {
	// Name is the directive prefix.
	Name  string
	Title string
	// Strict turns undocumented types into an error.
	Strict bool
	Logger *slog.Logger
}

// Object is one inventory entry.
type Object struct {
	Name        string `json:"name"`
	DisplayName string `json:"dispname"`
	Type        string `json:"type"`
	DocName     string `json:"docname"`
	Anchor      string `json:"anchor"`
	Priority    int    `json:"priority"`
}

// Domain owns the registry of one build and the inventory of documented
// objects. It is safe for concurrent use.
type Domain struct {
	opts     Options
	registry *blueprint.Registry
	logger   *slog.Logger

	mu      sync.Mutex
	objects map[string]map[string]Object
}

// New creates a domain over reg.
func New(reg *blueprint.Registry, opts Options) *Domain {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Domain{
		opts:     opts,
		registry: reg,
		logger:   logger,
		objects:  make(map[string]map[string]Object),
	}
}

// Name returns the directive prefix.
func (d *Domain) Name() string { return d.opts.Name }

// Title returns the human readable domain name.
func (d *Domain) Title() string { return d.opts.Title }

// register records the first definition of a signature. It reports false
// for duplicates.
func (d *Domain) register(kind Kind, name, docname string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	byName, ok := d.objects[kind.Name]
	if !ok {
		byName = make(map[string]Object)
		d.objects[kind.Name] = byName
	}
	if _, dup := byName[name]; dup {
		return false
	}
	byName[name] = Object{
		Name:        name,
		DisplayName: name,
		Type:        kind.Name,
		DocName:     docname,
		Anchor:      name,
		Priority:    1,
	}
	return true
}

func (d *Domain) lookup(kind Kind, name string) (Object, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.objects[kind.Name][name]
	return obj, ok
}

// Objects lists every registered object sorted by type and name.
func (d *Domain) Objects() []Object {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Object
	for _, byName := range d.objects {
		for _, obj := range byName {
			out = append(out, obj)
		}
	}
	slices.SortFunc(out, func(a, b Object) int {
		if c := cmp.Compare(kindOrder(a.Type), kindOrder(b.Type)); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

func kindOrder(name string) int {
	for i, k := range kinds {
		if k.Name == name {
			return i
		}
	}
	return len(kinds)
}

// Reset forgets the inventory and makes every registry entry available
// again.
func (d *Domain) Reset() {
	d.mu.Lock()
	clear(d.objects)
	d.mu.Unlock()
	d.registry.Reset()
}

// CheckDocumented logs every declared type that no directive rendered. In
// strict mode it also returns an error.
func (d *Domain) CheckDocumented() error {
	var sections []string
	for _, k := range kinds {
		sections = append(sections, k.Section)
	}
	remaining := d.registry.Remaining(sections...)
	for _, u := range remaining {
		d.logger.Warn(fmt.Sprintf("%s has not been documented!", u),
			logfields.Section(u.Section), logfields.Type(u.Name))
	}
	if d.opts.Strict && len(remaining) > 0 {
		return errors.BlueprintError(fmt.Sprintf("%d declared types have not been documented", len(remaining))).
			WithContext("count", len(remaining)).Build()
	}
	return nil
}
