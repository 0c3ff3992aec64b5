// Package attribute maps attribute names (the DSL's `%name`) to the user
// callbacks they invoke, resolving alias chains before compile.
package attribute

import (
	"fmt"

	"github.com/ricky0123/vocoder/verr"
)

// Callback is a registered attribute implementation. Go functions carry
// no formal-parameter names at runtime, so a callback declares its own
// binding plan: Params lists the argument names in the order Fn expects
// them (the reserved name "env" receives the runtime's opaque
// environment value rather than a capture), and Fn receives the bound
// arguments positionally in that same order.
type Callback struct {
	Fn     func(args []any) (any, error)
	Params []string
}

// Registry holds the name -> callback mapping, plus alias-of-alias
// relations recorded via Alias and resolved once by resolve/Get.
type Registry struct {
	callbacks map[string]Callback
	aliases   map[string]string
	resolved  bool
	next      int
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		callbacks: map[string]Callback{},
		aliases:   map[string]string{},
	}
}

// Alias records that alias is another name for ref (the DSL's
// `%a = %b`); resolved transitively by resolve().
func (r *Registry) Alias(alias, ref string) {
	r.aliases[alias] = ref
}

// New registers a callback under alias, or under a freshly generated
// name if alias is empty, and returns the name it was registered under.
func (r *Registry) New(callback Callback, alias string) string {
	if alias == "" {
		r.next++
		alias = fmt.Sprintf("__attr%d", r.next)
	}
	r.callbacks[alias] = callback
	return alias
}

func (r *Registry) resolve(name string, visited map[string]struct{}) (Callback, error) {
	if _, ok := visited[name]; ok {
		return Callback{}, verr.New(verr.ErrCircularAttributeDefinition, "circular definition for %"+name)
	}
	visited[name] = struct{}{}

	if cb, ok := r.callbacks[name]; ok {
		return cb, nil
	}
	if ref, ok := r.aliases[name]; ok {
		return r.resolve(ref, visited)
	}
	return Callback{}, verr.New(verr.ErrUndefinedAttribute, "%"+name+" not recognized")
}

// Resolve walks every recorded alias to a concrete callback, failing on
// cycles or undefined targets. Idempotent; called lazily by Get.
func (r *Registry) Resolve() error {
	for alias := range r.aliases {
		cb, err := r.resolve(alias, map[string]struct{}{})
		if err != nil {
			return err
		}
		r.callbacks[alias] = cb
	}
	r.resolved = true
	return nil
}

// Get returns the concrete callback registered (directly or via alias)
// under name.
func (r *Registry) Get(name string) (Callback, error) {
	if !r.resolved {
		if err := r.Resolve(); err != nil {
			return Callback{}, err
		}
	}
	cb, ok := r.callbacks[name]
	if !ok {
		return Callback{}, verr.New(verr.ErrUndefinedAttribute, "%"+name+" not recognized")
	}
	return cb, nil
}
