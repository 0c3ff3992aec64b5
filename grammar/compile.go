package grammar

import (
	"strings"

	"github.com/ricky0123/vocoder/attribute"
	"github.com/ricky0123/vocoder/lexicon"
	"github.com/ricky0123/vocoder/soft"
	"github.com/ricky0123/vocoder/verr"
)

// Compile parses source, builds and resolves its rule set against
// lexicons and attrs, compiles it into a *soft.Soft, and finally
// compiles lexicons against every lexicon name the automaton actually
// uses as a symbol-transition predicate. Lexicon compile runs last
// because it needs to know exactly which names the compiled automaton
// references as predicates.
func Compile(source string, lexicons *lexicon.Registry, attrs *attribute.Registry) (*soft.Soft, error) {
	if strings.TrimSpace(stripComments(source)) == "" {
		return nil, verr.New(verr.ErrSyntax, "empty grammar")
	}

	prog, err := Parse(source)
	if err != nil {
		return nil, err
	}
	rules, err := Build(prog, lexicons, attrs)
	if err != nil {
		return nil, err
	}
	s, err := CompileAST(rules, attrs)
	if err != nil {
		return nil, err
	}

	predicates := make([]string, 0, len(s.SymbolTransitions))
	for _, t := range s.SymbolTransitions {
		if name, ok := t.Predicate.(string); ok {
			predicates = append(predicates, name)
		}
	}
	if err := lexicons.Compile(predicates); err != nil {
		return nil, err
	}
	return s, nil
}

// stripComments removes `//` line comments so a comment-only fragment
// is treated the same as a genuinely empty one.
func stripComments(source string) string {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "//"); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return strings.Join(lines, "\n")
}
