// Package vocoder builds voice-driven command grammars: a declarative
// DSL is compiled into a symbolic ordered finite transducer, and an
// engine drives the automaton from text utterances or CTC acoustic
// frames, invoking grammar-bound callbacks as phrases complete.
package vocoder

import (
	"fmt"
	"strings"

	"github.com/ricky0123/vocoder/attribute"
	"github.com/ricky0123/vocoder/beam"
	"github.com/ricky0123/vocoder/grammar"
	"github.com/ricky0123/vocoder/lexicon"
	"github.com/ricky0123/vocoder/runtime"
	"github.com/ricky0123/vocoder/soft"
	"github.com/ricky0123/vocoder/verr"
)

// Grammar accumulates DSL fragments, lexicons, and callbacks, then
// compiles them into a Compiled automaton. Lexicon and Callback return
// identifiers meant to be interpolated into later fragments after a
// `:` or `%` sigil:
//
//	g := vocoder.NewGrammar()
//	color, _ := g.Lexicon([]string{"red", "green", "blue"})
//	say := g.Callback(func(args []any) (any, error) { ... }, "word")
//	g.Fragment(fmt.Sprintf("!start = paint :%s => %%%s", color, say))
type Grammar struct {
	fragments  []string
	lexicons   *lexicon.Registry
	attributes *attribute.Registry
}

// NewGrammar returns an empty Grammar.
func NewGrammar() *Grammar {
	return &Grammar{
		lexicons:   lexicon.NewRegistry(),
		attributes: attribute.NewRegistry(),
	}
}

// Fragment appends a piece of DSL source. Fragments are joined with
// newlines at compile time, so each call can hold one assignment or
// many.
func (g *Grammar) Fragment(src string) {
	g.fragments = append(g.fragments, src)
}

// Lexicon registers a word set given as either a []string (each word
// its own attribute) or a map[string]any (word to attribute value),
// returning the identifier to interpolate after a `:` sigil. Any other
// shape is an ErrInvalidGrammarArgument.
func (g *Grammar) Lexicon(words any) (string, error) {
	switch w := words.(type) {
	case []string:
		return g.lexicons.NewFromWords(w, nil, ""), nil
	case map[string]any:
		return g.lexicons.NewFromWords(nil, w, ""), nil
	default:
		return "", verr.New(verr.ErrInvalidGrammarArgument,
			fmt.Sprintf("don't know what to do with object of type %T", words))
	}
}

// Callback registers fn as an attribute callback. params lists the
// formal argument names fn expects, in order; the reserved name "env"
// receives the engine's environment value, every other name binds a
// capture. The returned identifier is interpolated after a `%` sigil.
func (g *Grammar) Callback(fn func(args []any) (any, error), params ...string) string {
	return g.attributes.New(attribute.Callback{Fn: fn, Params: params}, "")
}

// NamedCallback is Callback under a caller-chosen name, so fragments
// can reference it as %name without interpolation.
func (g *Grammar) NamedCallback(name string, fn func(args []any) (any, error), params ...string) string {
	return g.attributes.New(attribute.Callback{Fn: fn, Params: params}, name)
}

// Config returns the accumulated DSL source.
func (g *Grammar) Config() string {
	return strings.Join(g.fragments, "\n")
}

// Compile runs the full pipeline — parse, desugar, AST compile,
// lexicon materialization — and returns the compiled automaton bundled
// with its lexicons. Errors are *verr.CompileError values from the
// taxonomy in the verr package.
func (g *Grammar) Compile() (*Compiled, error) {
	s, err := grammar.Compile(g.Config(), g.lexicons, g.attributes)
	if err != nil {
		return nil, err
	}
	return &Compiled{Soft: s, Lexicons: g.lexicons}, nil
}

// Compiled is a compiled grammar: the automaton plus the materialized
// lexicon registry it references. Immutable once built; any number of
// independent engines can be started from it.
type Compiled struct {
	Soft     *soft.Soft
	Lexicons *lexicon.Registry
}

// NewEngine starts a fresh engine at the grammar's initial frontier.
// env is handed to every callback that declares an "env" parameter.
func (c *Compiled) NewEngine(env any) *runtime.Engine {
	return runtime.NewEngine(c.Soft, c.Lexicons, env)
}

// Recognize decodes one batch of CTC frames with the grammar-constrained
// beam search, and on success commits the decoded words into the
// engine, executing any callbacks that became unambiguous. Returns the
// decoded words, the hypothesis log-probability, and whether anything
// was recognized; on failure the engine is left unchanged.
func (c *Compiled) Recognize(e *runtime.Engine, ctc [][]float64, enc *beam.TokenEncoding, opts beam.Options) ([]string, float64, bool) {
	result := beam.Search(c.Soft, c.Lexicons, e.Leaves(), ctc, enc, opts)
	if !result.Recognized || len(result.Words) == 0 {
		return nil, result.LogProb, false
	}
	e.Commit(result.Words, result.Leaves)
	return result.Words, result.LogProb, true
}
