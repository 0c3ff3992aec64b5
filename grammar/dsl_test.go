package grammar

import (
	"errors"
	"testing"

	"github.com/ricky0123/vocoder/verr"
)

func TestParseForms(t *testing.T) {
	tests := []struct {
		caption string
		src     string
	}{
		{
			caption: "cat of words",
			src:     `!start = hello world`,
		},
		{
			caption: "comments",
			src: `!start = hello world // trailing comment
// a whole-line comment`,
		},
		{
			caption: "alternation and grouping",
			src:     `!start = (hello | world) goodbye`,
		},
		{
			caption: "closures optional null",
			src:     `!start = <* hello > < world > [goodbye] _`,
		},
		{
			caption: "within utterance forms",
			src: `!start ~= hello world
!other = ~( hello ) ~~ hello`,
		},
		{
			caption: "captures and attributes",
			src: `!start = hello@1 world@name => %cb
!other = hello -> %a -> %b`,
		},
		{
			caption: "lexicon assignment and references",
			src: `:a = hello + world - goodbye
:b = :a
:c = word
!start = :a <* :b - hello >`,
		},
		{
			caption: "attribute alias",
			src: `%a = %b
!start = hello => %a`,
		},
		{
			caption: "identifiers with digits and underscores",
			src: `!nums_0_99 = :___abcd
!start = !nums_0_99`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			if _, err := Parse(tt.src); err != nil {
				t.Fatalf("parse failed: %v", err)
			}
		})
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		caption string
		src     string
	}{
		{
			caption: "uppercase",
			src:     `!start = CAN'T HAVE UPPERCASE`,
		},
		{
			caption: "garbage",
			src:     `x 1 * = blue`,
		},
		{
			caption: "unclosed group",
			src:     `!start = ( hello`,
		},
		{
			caption: "assignment without body",
			src:     `!start =`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, err := Parse(tt.src)
			if !errors.Is(err, verr.New(verr.ErrSyntax, "")) {
				t.Fatalf("want SyntaxError, got %v", err)
			}
		})
	}
}

func TestParseStopsReferenceBeforeNextAssignment(t *testing.T) {
	prog, err := Parse(`!start = !a :b
!a = hello
:b = world`)
	if err != nil {
		t.Fatal(err)
	}
	var rules, lexAssigns int
	for _, a := range prog.Assignments {
		switch {
		case a.Nonterm != nil:
			rules++
		case a.Lex != nil:
			lexAssigns++
		}
	}
	if rules != 2 || lexAssigns != 1 {
		t.Fatalf("references swallowed a following assignment: %v rules, %v lexicon assignments", rules, lexAssigns)
	}
}

func TestParseInlineCompoundLexicon(t *testing.T) {
	prog, err := Parse(`!start = <* :any - wakeword >`)
	if err != nil {
		t.Fatal(err)
	}
	unit := prog.Assignments[0].Nonterm.Expr.Alts[0].Units[0]
	inner := unit.Atom.KleeneClosure.Alts[0].Units[0]
	lex := inner.Atom.Lex
	if lex == nil || lex.First.Ref == nil || *lex.First.Ref != "any" {
		t.Fatalf("compound head misparsed: %+v", lex)
	}
	if len(lex.Rest) != 1 || lex.Rest[0].Op != "-" || *lex.Rest[0].Term.Word != "wakeword" {
		t.Fatalf("compound tail misparsed: %+v", lex.Rest)
	}
}
