package runtime

import (
	"errors"
	"testing"

	"github.com/ricky0123/vocoder/lexicon"
	"github.com/ricky0123/vocoder/soft"
)

// twoWordSoft builds the automaton for "two words from lex, with
// utterance boundaries allowed between them".
func twoWordSoft(t *testing.T) (*soft.Soft, *lexicon.Registry, string) {
	t.Helper()
	reg := lexicon.NewRegistry()
	id := reg.NewFromWords([]string{"hello", "world"}, nil, "")
	if err := reg.Compile([]string{id}); err != nil {
		t.Fatal(err)
	}

	s := soft.New()
	final := s.NewState()
	st := soft.AddBatchSeparatorReflection(s, s.Initial)
	st = soft.AddSymbol(s, st, id, nil)
	st = soft.AddBatchSeparatorReflection(s, st)
	soft.AddSymbol(s, st, id, nil, final)
	return s, reg, id
}

func TestTextSimulateAccepts(t *testing.T) {
	s, reg, _ := twoWordSoft(t)
	leaves := InitialPathLeaves(s)

	words, next, err := TextSimulate(s, leaves, lexiconAdapter{reg}, "hello world")
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 2 {
		t.Fatalf("want 2 words, got %v", words)
	}
	if len(next) != 1 || !s.IsFinalState(next[0].State) {
		t.Fatalf("want the single final leaf, got %v leaves", len(next))
	}
}

func TestTextSimulateEmptyUtterance(t *testing.T) {
	s, reg, _ := twoWordSoft(t)
	leaves := InitialPathLeaves(s)

	words, next, err := TextSimulate(s, leaves, lexiconAdapter{reg}, "   ")
	if err != nil || len(words) != 0 {
		t.Fatalf("empty utterance should be a no-op, got %v %v", words, err)
	}
	if len(next) != len(leaves) {
		t.Fatal("empty utterance should leave the frontier unchanged")
	}
}

func TestTextSimulateRejectsWithoutAdvancing(t *testing.T) {
	s, reg, _ := twoWordSoft(t)
	leaves := InitialPathLeaves(s)

	_, next, err := TextSimulate(s, leaves, lexiconAdapter{reg}, "hello goodbye")
	if !errors.Is(err, ErrInvalidWordTransition) {
		t.Fatalf("want ErrInvalidWordTransition, got %v", err)
	}
	if len(next) != len(leaves) || next[0] != leaves[0] {
		t.Fatal("a rejected utterance must hand back the original frontier")
	}
}

func TestEngineOfferedLexicons(t *testing.T) {
	s, reg, id := twoWordSoft(t)
	e := NewEngine(s, reg, nil)

	offered := e.OfferedLexicons()
	if len(offered) != 1 || offered[0] != id {
		t.Fatalf("want [%v], got %v", id, offered)
	}
}

func TestEngineTextAdvances(t *testing.T) {
	s, reg, _ := twoWordSoft(t)
	e := NewEngine(s, reg, nil)

	if _, err := e.Text("hello"); err != nil {
		t.Fatal(err)
	}
	if e.AtFinal() {
		t.Fatal("one word should not complete the grammar")
	}
	if _, err := e.Text("world"); err != nil {
		t.Fatal(err)
	}
	if !e.AtFinal() {
		t.Fatal("both words should complete the grammar")
	}
}
