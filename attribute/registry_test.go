package attribute

import (
	"errors"
	"testing"

	"github.com/ricky0123/vocoder/verr"
)

func noop(args []any) (any, error) { return nil, nil }

func TestNewGeneratesUniqueNames(t *testing.T) {
	r := NewRegistry()
	a := r.New(Callback{Fn: noop}, "")
	b := r.New(Callback{Fn: noop}, "")
	if a == b {
		t.Fatalf("generated names collide: %v", a)
	}
	if _, err := r.Get(a); err != nil {
		t.Fatal(err)
	}
}

func TestAliasChainResolves(t *testing.T) {
	r := NewRegistry()
	r.New(Callback{Fn: noop, Params: []string{"x"}}, "base")
	r.Alias("a", "base")
	r.Alias("b", "a")
	r.Alias("c", "b")

	cb, err := r.Get("c")
	if err != nil {
		t.Fatal(err)
	}
	if len(cb.Params) != 1 || cb.Params[0] != "x" {
		t.Fatalf("alias did not resolve to the base callback: %+v", cb)
	}
}

func TestCircularAlias(t *testing.T) {
	r := NewRegistry()
	r.Alias("a", "b")
	r.Alias("b", "a")
	err := r.Resolve()
	if !errors.Is(err, verr.New(verr.ErrCircularAttributeDefinition, "")) {
		t.Fatalf("want CircularAttributeDefinition, got %v", err)
	}
}

func TestUndefinedAttribute(t *testing.T) {
	r := NewRegistry()
	r.Alias("a", "nope")
	err := r.Resolve()
	if !errors.Is(err, verr.New(verr.ErrUndefinedAttribute, "")) {
		t.Fatalf("want UndefinedAttribute, got %v", err)
	}

	r = NewRegistry()
	_, err = r.Get("missing")
	if !errors.Is(err, verr.New(verr.ErrUndefinedAttribute, "")) {
		t.Fatalf("want UndefinedAttribute, got %v", err)
	}
}
