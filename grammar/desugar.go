package grammar

import (
	"github.com/ricky0123/vocoder/attribute"
	"github.com/ricky0123/vocoder/lexicon"
	"github.com/ricky0123/vocoder/verr"
)

// Build turns a parsed Program into the rule set CompileAST expects,
// registering every lexicon and attribute assignment the program
// declares along the way.
//
// The work splits into two walks over the typed parse tree: the first
// registers every lexicon/attribute assignment and builds each
// nonterminal's body into a raw Node tree (attribute references left as
// bare names, since the attribute registry isn't fully populated until
// every assignment in the program has been seen); the second walk, run
// once all assignments are registered, resolves those names, gathers
// capture keys per attributed-expression/closure scope, and desugars
// the omitted-capture shorthand.
func Build(prog *Program, lexicons *lexicon.Registry, attrs *attribute.Registry) (map[string]Node, error) {
	rules := map[string]Node{}
	for _, a := range prog.Assignments {
		switch {
		case a.Lex != nil:
			registerLexAssign(a.Lex, lexicons)
		case a.Attr != nil:
			attrs.Alias(a.Attr.Name, a.Attr.Ref)
		case a.Nonterm != nil:
			node, err := buildExpr(a.Nonterm.Expr, lexicons)
			if err != nil {
				return nil, err
			}
			if a.Nonterm.Attr != nil {
				node = &AttributedExpression{Expression: node, AttributeName: *a.Nonterm.Attr}
			}
			if a.Nonterm.Tilde {
				node = &WithinUtteranceExpression{Child: node}
			}
			rules[a.Nonterm.Name] = node
		}
	}

	for _, node := range rules {
		if err := resolveAttributes(node, attrs); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

// registerLexAssign records a `:id = lex-expr` assignment: a single
// `:ref` term is a reference alias, a single bare word a named
// singleton, anything with `+`/`-` terms a compound.
func registerLexAssign(la *LexAssign, lexicons *lexicon.Registry) {
	if len(la.Expr.Rest) == 0 {
		if la.Expr.First.Ref != nil {
			lexicons.Reference(*la.Expr.First.Ref)
			lexicons.Assign(la.Name, *la.Expr.First.Ref)
		} else {
			lexicons.NewFromWords([]string{*la.Expr.First.Word}, nil, la.Name)
		}
		return
	}
	lexicons.AssignCompound(la.Name, lexComponents(la.Expr, lexicons))
}

// lexComponents resolves each term of a compound lexicon expression to
// a registry name: `:ref` terms by reference, bare words as freshly
// registered singletons.
func lexComponents(e *LexExpr, lexicons *lexicon.Registry) []lexicon.Component {
	components := make([]lexicon.Component, 0, len(e.Rest)+1)
	components = append(components, lexicon.Component{Name: lexTermName(e.First, lexicons)})
	for _, t := range e.Rest {
		components = append(components, lexicon.Component{Subtract: t.Op == "-", Name: lexTermName(t.Term, lexicons)})
	}
	return components
}

func lexTermName(t *LexTerm, lexicons *lexicon.Registry) string {
	if t.Ref != nil {
		lexicons.Reference(*t.Ref)
		return *t.Ref
	}
	return lexicons.NewFromWords([]string{*t.Word}, nil, "")
}

// buildExpr builds an alternation (or, with one alternative, just the
// single concatenation).
func buildExpr(e *Expr, lexicons *lexicon.Registry) (Node, error) {
	if len(e.Alts) == 1 {
		return buildConcat(e.Alts[0], lexicons)
	}
	children := make([]Node, 0, len(e.Alts))
	for _, c := range e.Alts {
		child, err := buildConcat(c, lexicons)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &Alt{Children: children}, nil
}

// buildConcat builds a concatenation (or, with one unit, just the unit
// itself — there is no need to wrap a single child in a Cat node).
func buildConcat(c *Concat, lexicons *lexicon.Registry) (Node, error) {
	if len(c.Units) == 1 {
		return buildUnit(c.Units[0], lexicons)
	}
	children := make([]Node, 0, len(c.Units))
	for _, u := range c.Units {
		child, err := buildUnit(u, lexicons)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &Cat{Children: children}, nil
}

// buildUnit builds a tilde-prefixed unit, or an atom with its optional
// capture suffix and zero or more chained inline attributes (each
// wraps the previous, so `u -> %a -> %b` is `(u -> %a) -> %b`).
func buildUnit(u *Unit, lexicons *lexicon.Registry) (Node, error) {
	if u.Tilde != nil {
		child, err := buildUnit(u.Tilde, lexicons)
		if err != nil {
			return nil, err
		}
		return &WithinUtteranceExpression{Child: child}, nil
	}

	node, err := buildAtom(u.Atom, lexicons)
	if err != nil {
		return nil, err
	}
	if u.Capture != nil {
		if u.Capture.Index != nil {
			node = &PositionalCapture{Child: node, Position: *u.Capture.Index}
		} else {
			node = &NamedCapture{Child: node, Alias: *u.Capture.Name}
		}
	}
	for _, attrName := range u.InlineAttrs {
		node = &AttributedExpression{Expression: node, AttributeName: attrName}
	}
	return node, nil
}

func buildAtom(a *Atom, lexicons *lexicon.Registry) (Node, error) {
	switch {
	case a.Paren != nil:
		return buildExpr(a.Paren, lexicons)
	case a.PosClosure != nil:
		child, err := buildExpr(a.PosClosure, lexicons)
		if err != nil {
			return nil, err
		}
		return &PositiveClosure{Child: child}, nil
	case a.KleeneClosure != nil:
		child, err := buildExpr(a.KleeneClosure, lexicons)
		if err != nil {
			return nil, err
		}
		return &Closure{Child: child}, nil
	case a.Optional != nil:
		child, err := buildExpr(a.Optional, lexicons)
		if err != nil {
			return nil, err
		}
		return &Maybe{Child: child}, nil
	case a.Null:
		return &Null{}, nil
	case a.NontermRef != nil:
		return &Nonterminal{Name: *a.NontermRef}, nil
	case a.Lex != nil:
		if len(a.Lex.Rest) == 0 {
			return &Lexicon{Predicate: lexTermName(a.Lex.First, lexicons)}, nil
		}
		return &Lexicon{Predicate: lexicons.NewCompound(lexComponents(a.Lex, lexicons))}, nil
	default:
		return nil, verr.New(verr.ErrSyntax, "empty atom")
	}
}

// resolveAttributes walks node's whole tree resolving every
// AttributedExpression's AttributeName against attrs, gathering its
// capture keys (and those of any Closure/PositiveClosure reached along
// the way), and desugaring the zero-capture single-arg shorthand.
func resolveAttributes(node Node, attrs *attribute.Registry) error {
	var err error
	node.iterNodes(func(n Node) {
		if err != nil {
			return
		}
		switch child := n.(type) {
		case *AttributedExpression:
			cb, rerr := attrs.Get(child.AttributeName)
			if rerr != nil {
				err = rerr
				return
			}
			child.Attribute = cb
			child.CaptureKeys = gatherCaptureKeys(child.Expression)
			desugarOmittedCapture(child)
		case *Closure:
			child.CaptureKeys = gatherCaptureKeys(child.Child)
		case *PositiveClosure:
			child.CaptureKeys = gatherCaptureKeys(child.Child)
		}
	})
	return err
}

// desugarOmittedCapture wraps n's expression in an implicit `@1`
// positional capture when it captures nothing and its resolved
// callback takes exactly one capture argument (besides `env`) — the
// shorthand that lets `word => %cb` skip writing `word @1 => %cb`.
func desugarOmittedCapture(n *AttributedExpression) {
	if len(n.CaptureKeys) != 0 {
		return
	}
	nonEnvParams := 0
	for _, p := range n.Attribute.Params {
		if p != "env" {
			nonEnvParams++
		}
	}
	if nonEnvParams != 1 {
		return
	}
	n.Expression = &PositionalCapture{Child: n.Expression, Position: 1}
	n.CaptureKeys = map[any]struct{}{1: {}}
}

// gatherCaptureKeys collects the positional/named capture keys directly
// reachable from n without crossing into a nested AttributedExpression,
// Closure, or PositiveClosure — those have their own independent
// capture scope, gathered when resolveAttributes visits them in turn.
func gatherCaptureKeys(n Node) map[any]struct{} {
	keys := map[any]struct{}{}
	collectCaptureKeys(n, keys)
	return keys
}

func collectCaptureKeys(n Node, keys map[any]struct{}) {
	switch node := n.(type) {
	case *PositionalCapture:
		keys[node.Position] = struct{}{}
		collectCaptureKeys(node.Child, keys)
	case *NamedCapture:
		keys[node.Alias] = struct{}{}
		collectCaptureKeys(node.Child, keys)
	case *AttributedExpression, *Closure, *PositiveClosure:
		return
	case *Cat:
		for _, c := range node.Children {
			collectCaptureKeys(c, keys)
		}
	case *Alt:
		for _, c := range node.Children {
			collectCaptureKeys(c, keys)
		}
	case *Maybe:
		collectCaptureKeys(node.Child, keys)
	case *WithinUtteranceExpression:
		collectCaptureKeys(node.Child, keys)
	case *Nonterminal, *Lexicon, *Null:
		return
	}
}
