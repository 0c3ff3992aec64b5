package lexicon

import (
	"errors"
	"sort"
	"testing"

	"github.com/ricky0123/vocoder/verr"
)

func TestNewRejectsInvalidWords(t *testing.T) {
	tests := []struct {
		caption string
		words   []string
	}{
		{
			caption: "empty word set",
			words:   nil,
		},
		{
			caption: "empty string",
			words:   []string{"hello", ""},
		},
		{
			caption: "uppercase",
			words:   []string{"Hello"},
		},
		{
			caption: "digit",
			words:   []string{"abc1"},
		},
		{
			caption: "whitespace",
			words:   []string{"two words"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, err := New(tt.words, nil)
			if !errors.Is(err, verr.New(verr.ErrInvalidLexicon, "")) {
				t.Fatalf("want InvalidLexicon, got %v", err)
			}
		})
	}
}

func TestContains(t *testing.T) {
	lex, err := New([]string{"hello", "world", "don't"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range []string{"hello", "world", "don't"} {
		if !lex.Contains(w) {
			t.Fatalf("missing %v", w)
		}
	}
	for _, w := range []string{"", "hell", "worlds"} {
		if lex.Contains(w) {
			t.Fatalf("unexpectedly contains %v", w)
		}
	}
}

func TestTransitions(t *testing.T) {
	lex, err := New([]string{"he", "hello", "help", "world"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		prefix string
		want   []string
	}{
		{prefix: "", want: []string{"h", "w"}},
		{prefix: "he", want: []string{"l"}},
		{prefix: "hel", want: []string{"l", "p"}},
		{prefix: "hello", want: nil},
		{prefix: "xyz", want: nil},
	}
	for _, tt := range tests {
		got := lex.Transitions(tt.prefix)
		if len(got) != len(tt.want) {
			t.Fatalf("transitions(%q): want %v, got %v", tt.prefix, tt.want, got)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("transitions(%q): want %v, got %v", tt.prefix, tt.want, got)
			}
		}
	}
}

func TestIsPrefix(t *testing.T) {
	lex, err := New([]string{"hello", "world"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"", "h", "hell", "hello", "world"} {
		if !lex.IsPrefix(p) {
			t.Fatalf("%q should be a prefix", p)
		}
	}
	for _, p := range []string{"x", "helloo", "wr"} {
		if lex.IsPrefix(p) {
			t.Fatalf("%q should not be a prefix", p)
		}
	}
}

func TestAttributeDefaultsToWord(t *testing.T) {
	lex, err := New([]string{"one", "two"}, map[string]any{"one": 1})
	if err != nil {
		t.Fatal(err)
	}
	if got := lex.Attribute("one"); got != 1 {
		t.Fatalf("want 1, got %v", got)
	}
	if got := lex.Attribute("two"); got != "two" {
		t.Fatalf("want \"two\", got %v", got)
	}
}

func TestUnion(t *testing.T) {
	a, _ := New([]string{"hello", "help"}, nil)
	b, _ := New([]string{"world"}, nil)
	u := NewUnion(a, b)

	if !u.Contains("hello") || !u.Contains("world") {
		t.Fatal("union misses a member word")
	}
	if u.Contains("goodbye") {
		t.Fatal("union contains a non-member word")
	}

	got := u.Transitions("")
	want := []string{"h", "w"}
	sort.Strings(got)
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("want %v, got %v", want, got)
	}

	if !u.IsPrefix("wor") || u.IsPrefix("x") {
		t.Fatal("union prefix test wrong")
	}
}

func TestEmptyUnionAcceptsEmptyPrefix(t *testing.T) {
	u := NewUnion()
	if !u.IsPrefix("") {
		t.Fatal("empty prefix should be a prefix of any union")
	}
	if u.Contains("hello") || u.IsPrefix("h") {
		t.Fatal("empty union should accept nothing else")
	}
}
