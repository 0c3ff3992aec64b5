package runtime

import (
	"strings"

	"github.com/ricky0123/vocoder/lexicon"
	"github.com/ricky0123/vocoder/soft"
)

// lexiconAdapter makes *lexicon.Registry satisfy LexiconSet without the
// path-tree core importing the lexicon package directly.
type lexiconAdapter struct{ reg *lexicon.Registry }

func (a lexiconAdapter) Lookup(name string) Lexicon {
	lex, ok := a.reg.Lexicon(name)
	if !ok {
		return nil
	}
	return lex
}

func (a lexiconAdapter) Union(names ...string) UnionLexicon {
	return a.reg.GetUnion(names...)
}

// TextSimulate drives a whole utterance through the automaton starting
// from initialLeaves: each whitespace-separated word is validated
// against the union of lexicons the frontier offers, then consumed; a
// batch-separator step after the last word closes the utterance
// boundary. Returns the words consumed and the new frontier. On
// ErrInvalidWordTransition the returned frontier is initialLeaves,
// unadvanced. A pure function over the frontier: callers commit the
// result (and run its actions) separately.
func TextSimulate(s *soft.Soft, initialLeaves PathLeaves, lexicons LexiconSet, utterance string) ([]string, PathLeaves, error) {
	words := strings.Fields(utterance)
	if len(words) == 0 {
		return nil, initialLeaves, nil
	}
	leaves := StepTree(s, initialLeaves)
	for _, word := range words {
		union := lexicons.Union(GetPredicateTransitions(s, leaves)...)
		if err := AssertValidTransition(union, word); err != nil {
			return nil, initialLeaves, err
		}
		leaves = TransitionFromWord(s, lexicons.Lookup, leaves, word)
		leaves = StepTree(s, leaves)
	}
	leaves = BatchSeparatorTransition(s, leaves)
	leaves = StepTree(s, leaves)
	return words, leaves, nil
}

// Engine drives a compiled grammar one utterance at a time — from text
// via Text, or from an externally decoded frontier (e.g. the beam
// search's) via Commit — maintaining the path-tree frontier and
// applying output Actions through an Executor as soon as they become
// unambiguous.
type Engine struct {
	soft     *soft.Soft
	lexicons *lexicon.Registry
	exec     *Executor
	leaves   PathLeaves
}

// NewEngine returns an Engine positioned at the grammar's initial
// frontier, having already executed any actions that are unambiguous
// before the first word. env is passed through to every attribute
// callback unchanged.
func NewEngine(s *soft.Soft, lexicons *lexicon.Registry, env any) *Engine {
	attributor := func(lexiconName, word string) any {
		return lexicons.Attribute(lexiconName, word)
	}
	e := &Engine{
		soft:     s,
		lexicons: lexicons,
		exec:     NewExecutor(attributor, env),
	}
	e.Commit(nil, InitialPathLeaves(s))
	return e
}

// Leaves returns the engine's current frontier, for callers that need to
// inspect which lexicons are currently being offered (e.g. to build a
// beam search's per-step lexicon constraint).
func (e *Engine) Leaves() PathLeaves { return e.leaves }

// OfferedLexicons returns the lexicon names the current frontier accepts
// a word from, duplicates removed but order preserved by first
// occurrence.
func (e *Engine) OfferedLexicons() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, name := range GetPredicateTransitions(e.soft, e.leaves) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Text consumes one utterance: validates and advances through every
// word plus the closing batch separator, then commits the new frontier
// and executes the resulting actions. On a rejected word the engine
// state is left unchanged and ErrInvalidWordTransition is returned.
func (e *Engine) Text(utterance string) ([]string, error) {
	words, leaves, err := TextSimulate(e.soft, e.leaves, lexiconAdapter{e.lexicons}, utterance)
	if err != nil {
		return nil, err
	}
	e.Commit(words, leaves)
	return words, nil
}

// Commit replaces the frontier with leaves (already advanced past
// words by the caller), prunes it, and executes the actions the prune
// extracted. Used by Text and by drivers applying a beam-search result.
func (e *Engine) Commit(words []string, leaves PathLeaves) {
	leaves, actions := Simplify(leaves)
	e.leaves = leaves
	e.exec.Eat(words, actions)
}

// AtFinal reports whether the current frontier is exactly the single
// final-state leaf, i.e. the whole grammar has been recognized.
func (e *Engine) AtFinal() bool {
	return len(e.leaves) == 1 && e.soft.IsFinalState(e.leaves[0].State)
}
