package lexicon

import (
	"fmt"
	"sort"

	"github.com/ricky0123/vocoder/internal/setutil"
	"github.com/ricky0123/vocoder/verr"
)

// symbol is the uncompiled description of a registered lexicon name,
// before Registry.Compile materializes it into a concrete *Lexicon.
type symbol interface{ isSymbol() }

type wordSetSymbol struct{ words []string }
type attributedWordSetSymbol struct{ words map[string]any }
type referenceSymbol struct{ ref string }
type compoundSymbol struct{ components []Component }

func (wordSetSymbol) isSymbol()           {}
func (attributedWordSetSymbol) isSymbol() {}
func (referenceSymbol) isSymbol()         {}
func (compoundSymbol) isSymbol()          {}

// Component is one term of a compound lexicon expression, e.g. the "-b"
// in "a - b + c".
type Component struct {
	Subtract bool
	Name     string
}

const inlinePrefix = "___"

// Registry accumulates lexicon symbols registered during DSL ingestion
// (word-set literals, attributed word sets, aliases, and compound
// union/difference expressions) and materializes them all in one pass at
// Compile.
type Registry struct {
	symbols map[string]symbol
	vars    map[string]struct{}
	refs    map[string]struct{}
	next    int

	lexicons map[string]*Lexicon
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		symbols: map[string]symbol{},
		vars:    map[string]struct{}{},
		refs:    map[string]struct{}{},
	}
}

func (r *Registry) newID() string {
	r.next++
	return fmt.Sprintf("%s%d", inlinePrefix, r.next)
}

// Reference records that name is used somewhere (a lexicon reference in
// the DSL, `:name`); Compile checks every referenced name was defined.
func (r *Registry) Reference(name string) {
	r.refs[name] = struct{}{}
}

// Assign records an alias `identifier` for an existing lexicon `ref`
// (the DSL's `:identifier = :ref` form), returning identifier.
func (r *Registry) Assign(identifier, ref string) string {
	r.symbols[identifier] = referenceSymbol{ref: ref}
	r.vars[identifier] = struct{}{}
	return identifier
}

// NewFromWords registers an anonymous (or, if alias is non-empty,
// aliased) lexicon from either a word list or a word->attribute map.
func (r *Registry) NewFromWords(words []string, attrs map[string]any, alias string) string {
	var sym symbol
	if attrs != nil {
		sym = attributedWordSetSymbol{words: attrs}
	} else {
		sym = wordSetSymbol{words: words}
	}
	return r.register(sym, alias)
}

// NewCompound registers an anonymous compound lexicon expression
// `components[0] op components[1] op ...` (the first component is
// always additive).
func (r *Registry) NewCompound(components []Component) string {
	return r.register(compoundSymbol{components: components}, "")
}

// AssignCompound registers a named compound lexicon expression (the
// DSL's `:identifier = a + b - c` form) under identifier.
func (r *Registry) AssignCompound(identifier string, components []Component) string {
	r.symbols[identifier] = compoundSymbol{components: components}
	r.vars[identifier] = struct{}{}
	return identifier
}

func (r *Registry) register(sym symbol, alias string) string {
	if alias == "" {
		id := r.newID()
		r.symbols[id] = sym
		return id
	}
	r.symbols[alias] = sym
	return alias
}

// Attribute returns the attribute value for word under the compiled
// lexicon named name, or word itself if no compiled lexicon or
// attribute entry exists under that exact name.
func (r *Registry) Attribute(name, word string) any {
	lex, ok := r.lexicons[name]
	if !ok {
		return word
	}
	return lex.Attribute(word)
}

// GetUnion returns a virtual union over the already-compiled lexicons
// named by names, in the order given.
func (r *Registry) GetUnion(names ...string) *Union {
	lexicons := make([]*Lexicon, 0, len(names))
	for _, n := range names {
		if lex, ok := r.lexicons[n]; ok {
			lexicons = append(lexicons, lex)
		}
	}
	return NewUnion(lexicons...)
}

// Lexicon returns the compiled lexicon registered under name, if any.
func (r *Registry) Lexicon(name string) (*Lexicon, bool) {
	lex, ok := r.lexicons[name]
	return lex, ok
}

// Compile resolves every reference and compound, checks the dependency
// graph is acyclic, and materializes a concrete *Lexicon for every named
// variable and every predicate name passed in (predicate names are the
// lexicon ids actually used as SOFT symbol-transition predicates).
func (r *Registry) Compile(predicates []string) error {
	for ref := range r.refs {
		if _, ok := r.symbols[ref]; !ok {
			return verr.New(verr.ErrUndefinedLexicon, ":"+ref+" not defined")
		}
	}

	dependence := map[string]map[string]struct{}{}
	for v := range r.vars {
		deps, err := r.deps(v, map[string]struct{}{})
		if err != nil {
			return err
		}
		dependence[v] = deps
	}
	dependence = setutil.TransitiveClosure(dependence)
	for v, deps := range dependence {
		if _, ok := deps[v]; ok {
			return verr.New(verr.ErrCircularLexiconDefinition, "circular definition for :"+v)
		}
	}

	order := make([]string, 0, len(r.vars))
	for v := range r.vars {
		order = append(order, v)
	}
	sort.Slice(order, func(i, j int) bool {
		return len(dependence[order[i]]) < len(dependence[order[j]])
	})

	r.lexicons = map[string]*Lexicon{}
	for _, v := range order {
		words, attrs, err := r.wordsAndAttributes(v)
		if err != nil {
			return err
		}
		lex, err := New(words, attrs)
		if err != nil {
			return err
		}
		r.lexicons[v] = lex
	}

	for _, p := range predicates {
		if _, ok := r.lexicons[p]; ok {
			continue
		}
		words, attrs, err := r.wordsAndAttributes(p)
		if err != nil {
			return err
		}
		lex, err := New(words, attrs)
		if err != nil {
			return err
		}
		r.lexicons[p] = lex
	}

	return nil
}

func (r *Registry) deps(name string, visited map[string]struct{}) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	if err := r.depsInto(name, visited, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Registry) depsInto(name string, visited, out map[string]struct{}) error {
	if _, ok := visited[name]; ok {
		return nil
	}
	visited[name] = struct{}{}

	sym, ok := r.symbols[name]
	if !ok {
		return verr.New(verr.ErrUndefinedLexicon, ":"+name+" not defined")
	}
	switch s := sym.(type) {
	case referenceSymbol:
		if _, ok := r.vars[s.ref]; ok {
			out[s.ref] = struct{}{}
		}
		return r.depsInto(s.ref, visited, out)
	case compoundSymbol:
		for _, c := range s.components {
			if _, ok := r.vars[c.Name]; ok {
				out[c.Name] = struct{}{}
			}
			if err := r.depsInto(c.Name, visited, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) wordsAndAttributes(name string) ([]string, map[string]any, error) {
	sym, ok := r.symbols[name]
	if !ok {
		return nil, nil, verr.New(verr.ErrUndefinedLexicon, ":"+name+" not defined")
	}
	switch s := sym.(type) {
	case wordSetSymbol:
		return s.words, nil, nil
	case attributedWordSetSymbol:
		words := make([]string, 0, len(s.words))
		for w := range s.words {
			words = append(words, w)
		}
		return words, s.words, nil
	case referenceSymbol:
		if lex, ok := r.lexicons[s.ref]; ok {
			return lex.Words(), copyAttrs(lex), nil
		}
		return r.wordsAndAttributes(s.ref)
	case compoundSymbol:
		words := map[string]struct{}{}
		attrs := map[string]any{}
		for _, c := range s.components {
			cw, ca, err := r.wordsAndAttributes(c.Name)
			if err != nil {
				return nil, nil, err
			}
			if c.Subtract {
				for _, w := range cw {
					delete(words, w)
					delete(attrs, w)
				}
			} else {
				for _, w := range cw {
					words[w] = struct{}{}
				}
				for w, v := range ca {
					attrs[w] = v
				}
			}
		}
		out := make([]string, 0, len(words))
		for w := range words {
			out = append(out, w)
		}
		return out, attrs, nil
	default:
		return nil, nil, fmt.Errorf("internal error: unknown lexicon symbol kind %T", sym)
	}
}

func copyAttrs(lex *Lexicon) map[string]any {
	out := make(map[string]any, len(lex.attributes))
	for w, v := range lex.attributes {
		out[w] = v
	}
	return out
}
