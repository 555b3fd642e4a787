package conform

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

///////////////////////////////////////////////////////////////////////////////
// Conformer Interfaces
///////////////////////////////////////////////////////////////////////////////

// Conformer filters or validates a single value.
//
// Conform receives the current value of the field, the rule's params and
// the call Context. It returns the new value of the field, or an error to
// signal that the value does not conform. Use Fail/Failf to attach a
// message or type to the failure, and Fatal to abort the whole run.
type Conformer interface {
	Conform(value any, params []any, c *Context) (any, error)
}

// ConformerFunc adapts a plain function to Conformer.
type ConformerFunc func(value any, params []any, c *Context) (any, error)

// Conform calls f(value, params, c).
func (f ConformerFunc) Conform(value any, params []any, c *Context) (any, error) {
	return f(value, params, c)
}

// Group is a named collection of conformers, e.g. the "f" filters.
type Group interface {
	Lookup(name string) (Conformer, bool)
}

// Funcs is a map backed Group.
type Funcs map[string]Conformer

// Lookup implements Group.
func (fs Funcs) Lookup(name string) (Conformer, bool) {
	fn, ok := fs[name]
	return fn, ok
}

// Names returns the sorted names in the group.
func (fs Funcs) Names() []string {
	names := make([]string, 0, len(fs))
	for name := range fs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// asConformer accepts a Conformer or a function with the Conformer signature.
// Nil functions are rejected.
func asConformer(v any) (Conformer, bool) {
	switch fn := v.(type) {
	case ConformerFunc:
		return fn, fn != nil
	case Conformer:
		return fn, true
	case func(value any, params []any, c *Context) (any, error):
		return ConformerFunc(fn), fn != nil
	default:
		return nil, false
	}
}

///////////////////////////////////////////////////////////////////////////////
// Registry
///////////////////////////////////////////////////////////////////////////////

// Registry maps names to conformer groups and standalone conformers.
//
// Paths are resolved as "<group>.<name>". A standalone conformer is
// resolved by its exact name. Resolution falls back to the global registry
// (see RegisterGlobal) when the path is not found.
//
// A Registry is safe for concurrent use, so one instance may back any
// number of request scoped Sessions.
type Registry struct {
	mu       sync.RWMutex
	groups   map[string]Group     // group name -> group
	funcs    map[string]Conformer // standalone name -> conformer
	fallback *Registry            // nil for the global registry itself
}

type RegistryOpts struct {
	Groups          map[string]Group
	Funcs           map[string]Conformer
	ExcludeFallback bool // do not fall back to the global registry
}

func NewRegistry(opts RegistryOpts) *Registry {
	reg := &Registry{
		groups: make(map[string]Group),
		funcs:  make(map[string]Conformer),
	}
	if !opts.ExcludeFallback {
		reg.fallback = _gRegistry
	}

	for name, group := range opts.Groups {
		reg.groups[name] = group
	}
	for name, fn := range opts.Funcs {
		reg.funcs[name] = fn
	}

	return reg
}

// AddGroup registers (or replaces) a conformer group under name.
func (reg *Registry) AddGroup(name string, group Group) error {
	if name == "" || strings.Contains(name, GroupPathDelimiter) {
		return fmt.Errorf("%w: %q", ErrInvalidGroupName, name)
	}
	if group == nil {
		return fmt.Errorf("%w: nil group %q", ErrInvalidGroupName, name)
	}

	reg.mu.Lock()
	reg.groups[name] = group
	reg.mu.Unlock()
	return nil
}

// AddFunc registers (or replaces) a standalone conformer under name.
// Names containing "." are reachable only through groups and are rejected.
func (reg *Registry) AddFunc(name string, fn Conformer) error {
	if name == "" || strings.Contains(name, GroupPathDelimiter) {
		return fmt.Errorf("%w: %q", ErrInvalidGroupName, name)
	}
	if fn == nil {
		return fmt.Errorf("%w: nil conformer %q", ErrInvalidGroupName, name)
	}

	reg.mu.Lock()
	reg.funcs[name] = fn
	reg.mu.Unlock()
	return nil
}

// Group returns the group registered under name.
func (reg *Registry) Group(name string) (Group, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	group, ok := reg.groups[name]
	return group, ok
}

// Resolve looks up the conformer for a function path.
func (reg *Registry) Resolve(path string) (Conformer, error) {
	if fn, ok := reg.lookup(path); ok {
		return fn, nil
	}
	if reg.fallback != nil {
		if fn, ok := reg.fallback.lookup(path); ok {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnresolvedFunction, path)
}

// resolveRule returns the rule's direct function or resolves its path.
func (reg *Registry) resolveRule(rule Rule) (Conformer, error) {
	if rule.Fn != nil {
		return rule.Fn, nil
	}
	return reg.Resolve(rule.Path)
}

func (reg *Registry) lookup(path string) (Conformer, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	groupName, name, found := strings.Cut(path, GroupPathDelimiter)
	if !found {
		fn, ok := reg.funcs[path]
		return fn, ok
	}

	group, ok := reg.groups[groupName]
	if !ok {
		return nil, false
	}
	fn, ok := group.Lookup(name)
	if !ok || fn == nil {
		return nil, false
	}
	return fn, true
}

///////////////////////////////////////////////////////////////////////////////
// Global Singleton and Package Functions
///////////////////////////////////////////////////////////////////////////////

var _gRegistry *Registry = nil

func init() {
	_gRegistry = NewRegistry(RegistryOpts{ExcludeFallback: true})
}

// RegisterGlobal registers a standalone conformer with the global registry.
// Every Registry that does not exclude the fallback can resolve it.
func RegisterGlobal(name string, fn Conformer) error {
	return _gRegistry.AddFunc(name, fn)
}

// RegisterGlobalGroup registers a conformer group with the global registry.
func RegisterGlobalGroup(name string, group Group) error {
	return _gRegistry.AddGroup(name, group)
}

// Resolve resolves a path against the global registry only.
func Resolve(path string) (Conformer, error) {
	return _gRegistry.Resolve(path)
}
