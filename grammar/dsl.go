package grammar

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ricky0123/vocoder/verr"
)

var dslLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Op2", Pattern: `~=|=>|->|<\*`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[a-z_][a-z0-9_']*`},
	{Name: "Punct", Pattern: `[!:%@~<>\[\]\(\)\|_=+-]`},
})

// Program is the root parse node: a sequence of top-level assignments.
type Program struct {
	Assignments []*Assignment `parser:"@@*"`
}

// Assignment dispatches on the three top-level DSL forms: nonterminal,
// lexicon, and attribute assignment.
type Assignment struct {
	Pos     lexer.Position
	Nonterm *NontermAssign `parser:"  @@"`
	Lex     *LexAssign     `parser:"| @@"`
	Attr    *AttrAssign    `parser:"| @@"`
}

// NontermAssign is `!name (= | ~=) expr [=> %attr]`.
type NontermAssign struct {
	Pos   lexer.Position
	Name  string  `parser:"\"!\" @Ident"`
	Tilde bool    `parser:"( @\"~=\" | \"=\" )"`
	Expr  *Expr   `parser:"@@"`
	Attr  *string `parser:"( \"=>\" \"%\" @Ident )?"`
}

// LexAssign is `:name = lex-expr`.
type LexAssign struct {
	Pos  lexer.Position
	Name string   `parser:"\":\" @Ident \"=\""`
	Expr *LexExpr `parser:"@@"`
}

// AttrAssign is `%name = %ref`, an attribute alias.
type AttrAssign struct {
	Pos  lexer.Position
	Name string `parser:"\"%\" @Ident \"=\""`
	Ref  string `parser:"\"%\" @Ident"`
}

// LexExpr is `term (("+"|"-") term)*`: a single term is a plain
// reference or singleton, anything longer a union/difference compound.
type LexExpr struct {
	Pos   lexer.Position
	First *LexTerm `parser:"@@"`
	Rest  []*LexOp `parser:"@@*"`
}

// LexTerm is one component of a lexicon expression: `:name` references
// a registered lexicon, a bare word denotes the singleton lexicon
// containing just that word. The negative lookahead keeps a reference
// that starts the next `:name = …` assignment from being swallowed as
// a term of the expression before it.
type LexTerm struct {
	Ref  *string `parser:"  \":\" @Ident (?! \"=\" )"`
	Word *string `parser:"| @Ident"`
}

// LexOp is one additive or subtractive continuation of a compound
// lexicon expression.
type LexOp struct {
	Op   string   `parser:"@( \"+\" | \"-\" )"`
	Term *LexTerm `parser:"@@"`
}

// Expr is `cat ("|" cat)*`.
type Expr struct {
	Pos  lexer.Position
	Alts []*Concat `parser:"@@ ( \"|\" @@ )*"`
}

// Concat is a left-to-right sequence of one or more units (the DSL's
// `cat`; named Concat in Go to avoid colliding with the AST's Cat node).
type Concat struct {
	Pos   lexer.Position
	Units []*Unit `parser:"@@+"`
}

// Unit is either a within-utterance wrapper (prefix `~`) around another
// unit, or a plain unit: an atom, an optional capture suffix, and zero
// or more inline-attribute suffixes.
type Unit struct {
	Pos         lexer.Position
	Tilde       *Unit    `parser:"(  \"~\" @@"`
	Atom        *Atom    `parser:" | @@"`
	Capture     *Capture `parser:"   ( \"@\" @@ )?"`
	InlineAttrs []string `parser:"   ( \"->\" \"%\" @Ident )* )"`
}

// Capture is the `@N` (positional) or `@name` (named) suffix.
type Capture struct {
	Pos   lexer.Position
	Index *int    `parser:"  @Int"`
	Name  *string `parser:"| @Ident"`
}

// Atom is one of the DSL's primary unit forms. The lookahead on
// NontermRef stops a reference from consuming the `!name =` that opens
// the next rule; bare words and `:name` references both parse as a
// LexExpr, so `:any - wakeword` works inline in expression position.
type Atom struct {
	Pos           lexer.Position
	Paren         *Expr    `parser:"(  \"(\" @@ \")\""`
	PosClosure    *Expr    `parser:" | \"<\" @@ \">\""`
	KleeneClosure *Expr    `parser:" | \"<*\" @@ \">\""`
	Optional      *Expr    `parser:" | \"[\" @@ \"]\""`
	Null          bool     `parser:" | @\"_\""`
	NontermRef    *string  `parser:" | \"!\" @Ident (?! \"=\" | \"~=\" )"`
	Lex           *LexExpr `parser:" | @@ )"`
}

// Parse parses source into a parse tree, or a *verr.CompileError tagged
// ErrSyntax on any lexical or grammatical failure. The empty program
// parses fine here; Compile rejects it one layer up.
func Parse(source string) (*Program, error) {
	parser, err := participle.Build[Program](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(4),
	)
	if err != nil {
		return nil, err
	}
	prog, err := parser.ParseString("", source)
	if err != nil {
		return nil, syntaxError(err)
	}
	return prog, nil
}

func syntaxError(err error) error {
	if perr, ok := err.(participle.Error); ok {
		pos := perr.Position()
		return verr.At(verr.ErrSyntax, perr.Message(), pos.Line, pos.Column)
	}
	return verr.New(verr.ErrSyntax, err.Error())
}
