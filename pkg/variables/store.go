// Package variables flattens variable declarations from every scope into a
// single lookup with a fixed precedence.
package variables

import (
	"sort"

	"github.com/blackcoderx/opencollection/pkg/collection"
)

// Scope names where a resolved value came from. It is kept for diagnostics
// only and never reaches a resolved request.
type Scope int

const (
	ScopeEnvironment Scope = iota
	ScopeCollection
	ScopeFolder
	ScopeItem
)

func (s Scope) String() string {
	switch s {
	case ScopeEnvironment:
		return "environment"
	case ScopeCollection:
		return "collection"
	case ScopeFolder:
		return "folder"
	case ScopeItem:
		return "item"
	}
	return "unknown"
}

// Selector picks the variant of a variable to use. It returns false when no
// variant applies, in which case the top-level value is used.
type Selector func(name string, variants []collection.Variant) (string, bool)

// SelectByDescription selects the first variant whose description equals desc.
func SelectByDescription(desc string) Selector {
	return func(_ string, variants []collection.Variant) (string, bool) {
		for _, v := range variants {
			if v.Description == desc {
				return v.Data, true
			}
		}
		return "", false
	}
}

type entry struct {
	value     string
	transient bool
	scope     Scope
}

// Store is an immutable, flattened view of variables. It copies values out of
// the declaring scopes and never aliases them.
type Store struct {
	values map[string]entry
}

// Option configures Build.
type Option func(*builder)

type builder struct {
	selector Selector
}

// WithSelector sets the variant selection context. Without it every variable
// resolves to its top-level value.
func WithSelector(sel Selector) Option {
	return func(b *builder) { b.selector = sel }
}

// Build flattens env and chain into a Store.
//
// chain is ordered from the collection root to the target, innermost last:
// chain[0] is the collection base config, the middle entries are ancestor
// folders, and the final entry may be the target item's own declarations.
// Precedence, highest first: item, nearest folder, ..., collection base,
// environment. Disabled variables are absent at every scope.
func Build(env *collection.Environment, chain []collection.Config, opts ...Option) *Store {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}

	s := &Store{values: make(map[string]entry)}
	if env != nil {
		s.apply(b, env.Variables, ScopeEnvironment)
	}
	for i, cfg := range chain {
		scope := ScopeFolder
		switch {
		case i == 0:
			scope = ScopeCollection
		case i == len(chain)-1:
			scope = ScopeItem
		}
		s.apply(b, cfg.Variables, scope)
	}
	return s
}

// apply lays vars over the store. Later declarations win, which gives
// last-declared-wins inside one list and inner-wins across scopes.
func (s *Store) apply(b *builder, vars []collection.Variable, scope Scope) {
	for _, v := range vars {
		if v.Disabled || v.Name == "" {
			continue
		}
		value := v.Value.Data
		if b.selector != nil && len(v.Value.Variants) > 0 {
			if picked, ok := b.selector(v.Name, v.Value.Variants); ok {
				value = picked
			}
		}
		s.values[v.Name] = entry{value: value, transient: v.Transient, scope: scope}
	}
}

// Lookup returns the value of name and whether it exists.
func (s *Store) Lookup(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	e, ok := s.values[name]
	return e.value, ok
}

// Scope reports which scope supplied name.
func (s *Store) Scope(name string) (Scope, bool) {
	if s == nil {
		return 0, false
	}
	e, ok := s.values[name]
	return e.scope, ok
}

// Len returns the number of visible variables.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// Names returns the visible variable names in sorted order.
func (s *Store) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Exported returns a copy of the shareable variables. Transient variables are
// left out.
func (s *Store) Exported() map[string]string {
	out := make(map[string]string)
	if s == nil {
		return out
	}
	for name, e := range s.values {
		if !e.transient {
			out[name] = e.value
		}
	}
	return out
}
