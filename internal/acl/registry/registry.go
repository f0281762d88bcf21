// internal/acl/registry/registry.go
package registry

import (
	"fmt"
	"sync"

	"aclgate/internal/acl"
)

// Declaration is one declaration site: the rule list and optional skip
// flag attached to a resource or to a single action. A nil Skip means
// the site said nothing about skipping, which matters for the cascade
// in Resolve.
type Declaration struct {
	Rules []acl.Rule
	Skip  *bool
}

// Source supplies effective metadata per (resource, action). The
// registry is the in-process implementation; anything that can answer
// Resolve works (static tables, config files, code-first setup).
type Source interface {
	// Resolve returns the effective metadata for an action, or nil
	// when nothing was declared for the resource or the action. The
	// returned metadata must not be mutated.
	Resolve(resource, action string) *acl.Metadata
}

type entry struct {
	resource *Declaration
	actions  map[string]*Declaration
}

// Registry holds access declarations keyed by resource name and
// resolves them into effective per-action metadata. Declarations are
// registered at startup; resolution results are cached since they are
// a pure function of the declarations.
type Registry struct {
	mu        sync.RWMutex
	resources map[string]*entry
	cache     map[string]*acl.Metadata
	cached    map[string]bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		resources: make(map[string]*entry),
		cache:     make(map[string]*acl.Metadata),
		cached:    make(map[string]bool),
	}
}

// DeclareResource attaches a resource-level declaration. Its rules
// apply to every action of the resource unless tagged for a specific
// one. Malformed declarations are rejected here, not at request time.
func (r *Registry) DeclareResource(resource string, d Declaration) error {
	if resource == "" {
		return fmt.Errorf("resource name is required")
	}
	if err := validateRules(d.Rules); err != nil {
		return fmt.Errorf("resource %q: %w", resource, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.ensure(resource)
	if e.resource != nil {
		return fmt.Errorf("resource %q already declared", resource)
	}
	e.resource = &d
	r.invalidate()
	return nil
}

// DeclareAction attaches an action-level declaration to one action of
// a resource.
func (r *Registry) DeclareAction(resource, action string, d Declaration) error {
	if resource == "" {
		return fmt.Errorf("resource name is required")
	}
	if action == "" {
		return fmt.Errorf("resource %q: action name is required", resource)
	}
	if err := validateRules(d.Rules); err != nil {
		return fmt.Errorf("resource %q action %q: %w", resource, action, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.ensure(resource)
	if _, ok := e.actions[action]; ok {
		return fmt.Errorf("resource %q action %q already declared", resource, action)
	}
	e.actions[action] = &d
	r.invalidate()
	return nil
}

// Resolve merges the resource-level and action-level declarations into
// the effective metadata for one action:
//
//   - nothing declared at either level → nil (undeclared, which the
//     caller may substitute with a default policy)
//   - resource rules come first in the merge, action rules second
//   - rules without an explicit action tag are local to the action
//     being resolved; tagged rules only survive for their own action
//   - duplicates by (principal, permission) keep the first occurrence,
//     so a resource-level rule shadows an identical action-level one
//   - skip cascades: action-level if declared, else resource-level,
//     else false
//
// The skip bypass and the default-policy fallback are applied by the
// consumer, never here.
func (r *Registry) Resolve(resource, action string) *acl.Metadata {
	key := resource + "\x00" + action

	r.mu.RLock()
	if r.cached[key] {
		md := r.cache[key]
		r.mu.RUnlock()
		return md
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached[key] {
		return r.cache[key]
	}
	md := r.resolve(resource, action)
	r.cache[key] = md
	r.cached[key] = true
	return md
}

func (r *Registry) resolve(resource, action string) *acl.Metadata {
	e := r.resources[resource]
	if e == nil {
		return nil
	}
	resourceDecl := e.resource
	actionDecl := e.actions[action]
	if resourceDecl == nil && actionDecl == nil {
		return nil
	}

	var merged []acl.Rule
	if resourceDecl != nil {
		merged = append(merged, resourceDecl.Rules...)
	}
	if actionDecl != nil {
		merged = append(merged, actionDecl.Rules...)
	}

	seen := make(map[string]bool, len(merged))
	rules := make([]acl.Rule, 0, len(merged))
	for _, rule := range merged {
		if rule.Action == "" {
			rule.Action = action
		}
		if rule.Action != action {
			continue
		}
		k := string(rule.Principal) + "," + string(rule.Permission)
		if seen[k] {
			continue
		}
		seen[k] = true
		rules = append(rules, rule)
	}

	skip := false
	switch {
	case actionDecl != nil && actionDecl.Skip != nil:
		skip = *actionDecl.Skip
	case resourceDecl != nil && resourceDecl.Skip != nil:
		skip = *resourceDecl.Skip
	}

	return &acl.Metadata{Rules: rules, Skip: skip}
}

// ensure must be called with the write lock held.
func (r *Registry) ensure(resource string) *entry {
	e := r.resources[resource]
	if e == nil {
		e = &entry{actions: make(map[string]*Declaration)}
		r.resources[resource] = e
	}
	return e
}

// invalidate must be called with the write lock held.
func (r *Registry) invalidate() {
	r.cache = make(map[string]*acl.Metadata)
	r.cached = make(map[string]bool)
}

func validateRules(rules []acl.Rule) error {
	for i, rule := range rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// Skip is a convenience for building *bool skip flags in declarations.
func Skip(v bool) *bool {
	return &v
}
