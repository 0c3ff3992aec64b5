package lexicon

import (
	"errors"
	"testing"

	"github.com/ricky0123/vocoder/verr"
)

func TestRegistryCompileAliasChain(t *testing.T) {
	r := NewRegistry()
	id := r.NewFromWords([]string{"hello", "world"}, nil, "")
	r.Assign("a", id)
	r.Assign("b", "a")
	r.Assign("c", "b")

	if err := r.Compile(nil); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a", "b", "c"} {
		lex, ok := r.Lexicon(name)
		if !ok || !lex.Contains("hello") {
			t.Fatalf(":%v did not resolve through the alias chain", name)
		}
	}
}

func TestRegistryCompileCompound(t *testing.T) {
	r := NewRegistry()
	abc := r.NewFromWords(nil, map[string]any{"a": 1, "b": 2, "c": 3}, "")
	bOnly := r.NewFromWords(nil, map[string]any{"b": 20}, "")
	c := r.NewFromWords([]string{"c"}, nil, "")
	r.AssignCompound("mix", []Component{
		{Name: abc},
		{Name: bOnly},
		{Subtract: true, Name: c},
	})

	if err := r.Compile(nil); err != nil {
		t.Fatal(err)
	}
	lex, ok := r.Lexicon("mix")
	if !ok {
		t.Fatal("missing :mix")
	}
	if !lex.Contains("a") || !lex.Contains("b") || lex.Contains("c") {
		t.Fatalf("wrong compound membership")
	}
	// Union merges attributes with the right side winning.
	if got := lex.Attribute("b"); got != 20 {
		t.Fatalf("want 20, got %v", got)
	}
	if got := lex.Attribute("a"); got != 1 {
		t.Fatalf("want 1, got %v", got)
	}
}

func TestRegistryCompileErrors(t *testing.T) {
	tests := []struct {
		caption string
		setup   func(r *Registry)
		want    verr.Cause
	}{
		{
			caption: "undefined reference",
			setup: func(r *Registry) {
				r.Reference("nope")
			},
			want: verr.ErrUndefinedLexicon,
		},
		{
			caption: "undefined alias target",
			setup: func(r *Registry) {
				r.Assign("a", "nope")
			},
			want: verr.ErrUndefinedLexicon,
		},
		{
			caption: "circular aliases",
			setup: func(r *Registry) {
				r.Assign("a", "b")
				r.Assign("b", "a")
			},
			want: verr.ErrCircularLexiconDefinition,
		},
		{
			caption: "circular compound",
			setup: func(r *Registry) {
				r.AssignCompound("a", []Component{{Name: "b"}})
				r.AssignCompound("b", []Component{{Name: "a"}})
			},
			want: verr.ErrCircularLexiconDefinition,
		},
		{
			caption: "difference empties the word set",
			setup: func(r *Registry) {
				x := r.NewFromWords([]string{"hello"}, nil, "")
				r.AssignCompound("a", []Component{{Name: x}, {Subtract: true, Name: x}})
			},
			want: verr.ErrInvalidLexicon,
		},
		{
			caption: "invalid word surfaces at materialize",
			setup: func(r *Registry) {
				r.Assign("a", r.NewFromWords([]string{"bad1"}, nil, ""))
			},
			want: verr.ErrInvalidLexicon,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			r := NewRegistry()
			tt.setup(r)
			err := r.Compile(nil)
			if !errors.Is(err, verr.New(tt.want, "")) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRegistryCompilesPredicates(t *testing.T) {
	r := NewRegistry()
	id := r.NewFromWords([]string{"hello"}, nil, "")
	if err := r.Compile([]string{id}); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Lexicon(id); !ok {
		t.Fatal("predicate lexicon was not materialized")
	}
}

func TestRegistryAttribute(t *testing.T) {
	r := NewRegistry()
	id := r.NewFromWords(nil, map[string]any{"one": 1}, "")
	if err := r.Compile([]string{id}); err != nil {
		t.Fatal(err)
	}
	if got := r.Attribute(id, "one"); got != 1 {
		t.Fatalf("want 1, got %v", got)
	}
	// An unknown lexicon name falls back to the word itself.
	if got := r.Attribute("nope", "one"); got != "one" {
		t.Fatalf("want \"one\", got %v", got)
	}
}

func TestGetUnion(t *testing.T) {
	r := NewRegistry()
	a := r.NewFromWords([]string{"hello"}, nil, "")
	b := r.NewFromWords([]string{"world"}, nil, "")
	if err := r.Compile([]string{a, b}); err != nil {
		t.Fatal(err)
	}
	u := r.GetUnion(a, b)
	if !u.Contains("hello") || !u.Contains("world") {
		t.Fatal("union misses a member")
	}
}
