// Package runtime implements the path-tree stepping engine, text-driven
// simulation, and action execution that drive a compiled *soft.Soft.
package runtime

import (
	"github.com/ricky0123/vocoder/soft"
	"github.com/ricky0123/vocoder/verr"
)

// Node is one node of the reverse-linked path tree: the runtime frontier
// over a Soft. ParentTransition/Valuation are retained until Simplify
// prunes them.
type Node struct {
	State            int
	Parent           *Node
	ParentTransition soft.Transition
	Valuation        Action
}

// PathLeaves is the current frontier: after StepTree, either symbol-kind
// states (deduplicated by state id) or at most one final-kind state.
type PathLeaves []*Node

// StepTree closes every skip and choice transition reachable from nodes
// by depth-first traversal, in an order that makes lower-cost choice
// branches appear first in the result, until every live leaf is either a
// symbol state or a final state. Symbol leaves are deduplicated by state
// id; at most one final-state leaf is retained (the first encountered).
func StepTree(s *soft.Soft, nodes []*Node) PathLeaves {
	stack := make([]*Node, len(nodes))
	for i, n := range nodes {
		stack[len(nodes)-1-i] = n
	}

	var leaves PathLeaves
	leafStates := map[int]struct{}{}
	hasFinal := false

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch s.StateType(node.State) {
		case soft.StateSkip:
			t := s.SkipTransitions[node.State]
			stack = append(stack, &Node{
				State:            t.Target,
				Parent:           node,
				ParentTransition: t,
				Valuation:        asAction(t.Output),
			})
		case soft.StateFinal:
			if !hasFinal {
				leaves = append(leaves, node)
				hasFinal = true
			}
		case soft.StateChoice:
			choices := s.ChoiceTransitions[node.State]
			for i := len(choices) - 1; i >= 0; i-- {
				t := choices[i]
				stack = append(stack, &Node{
					State:            t.Target,
					Parent:           node,
					ParentTransition: t,
					Valuation:        asAction(t.Output),
				})
			}
		case soft.StateSymbol:
			if _, ok := leafStates[node.State]; !ok {
				leaves = append(leaves, node)
				leafStates[node.State] = struct{}{}
			}
		}
	}

	return leaves
}

func asAction(output soft.Output) Action {
	if output == nil {
		return nil
	}
	a, ok := output.(Action)
	if !ok {
		return nil
	}
	return a
}

// InitialPathLeaves returns the frontier reached from a fresh Soft before
// any input is consumed.
func InitialPathLeaves(s *soft.Soft) PathLeaves {
	return StepTree(s, []*Node{{State: s.Initial}})
}

// TransitionFromWord advances every leaf whose state has a symbol
// transition on a non-special predicate matching word in lex, producing
// one child node per matching leaf (in leaf order).
func TransitionFromWord(s *soft.Soft, lex func(predicate string) Lexicon, leaves PathLeaves, word string) PathLeaves {
	var out PathLeaves
	for _, node := range leaves {
		if !s.IsSymbolState(node.State) {
			continue
		}
		t := s.SymbolTransitions[node.State]
		name, ok := t.Predicate.(string)
		if !ok {
			continue
		}
		l := lex(name)
		if l == nil || !l.Contains(word) {
			continue
		}
		out = append(out, &Node{State: t.Target, Parent: node, ParentTransition: t, Valuation: asAction(t.Output)})
	}
	return out
}

// BatchSeparatorTransition retains final leaves unchanged and advances
// leaves with a BatchSeparator symbol transition; every other leaf is
// dropped.
func BatchSeparatorTransition(s *soft.Soft, leaves PathLeaves) PathLeaves {
	var out PathLeaves
	for _, node := range leaves {
		switch s.StateType(node.State) {
		case soft.StateFinal:
			out = append(out, node)
		case soft.StateSymbol:
			t := s.SymbolTransitions[node.State]
			if sp, ok := t.Predicate.(soft.SpecialPredicate); ok && sp == soft.BatchSeparator {
				out = append(out, &Node{State: t.Target, Parent: node, ParentTransition: t, Valuation: asAction(t.Output)})
			}
		}
	}
	return out
}

// GetPredicateTransitions returns the lexicon names offered by the
// frontier's non-special symbol transitions, in leaf order.
func GetPredicateTransitions(s *soft.Soft, leaves PathLeaves) []string {
	var out []string
	for _, node := range leaves {
		if !s.IsSymbolState(node.State) {
			continue
		}
		if name, ok := s.SymbolTransitions[node.State].Predicate.(string); ok {
			out = append(out, name)
		}
	}
	return out
}

// Lexicon is the minimal read surface TransitionFromWord and
// AssertValidTransition need from a lexicon.Lexicon, kept abstract here
// so runtime does not import the lexicon package directly for its core
// stepping logic (only the thin adapters in engine.go do).
type Lexicon interface {
	Contains(word string) bool
}

// LexiconSet is the minimal read surface needed to validate a word
// transition and build a predicate union, implemented by engine.go's
// lexiconAdapter over a *lexicon.Registry.
type LexiconSet interface {
	Lookup(name string) Lexicon
	Union(names ...string) UnionLexicon
}

// UnionLexicon is the minimal union surface AssertValidTransition needs.
type UnionLexicon interface {
	Contains(word string) bool
}

// AssertValidTransition returns ErrInvalidWordTransition if word is not
// accepted by the union of predicates the current frontier offers.
func AssertValidTransition(union UnionLexicon, word string) error {
	if !union.Contains(word) {
		return ErrInvalidWordTransition
	}
	return nil
}

// ErrInvalidWordTransition is returned by TextSimulate (via Engine.Text)
// when a word is not accepted at the current frontier; the engine state
// is left unadvanced.
var ErrInvalidWordTransition = verr.New(verr.Cause("invalid word transition"), "")

// leastCommonAncestor returns the nearest shared ancestor of the given
// nodes by walking parent chains.
func leastCommonAncestor(nodes PathLeaves) *Node {
	if len(nodes) == 0 {
		panic("leastCommonAncestor: empty node list")
	}
	lca := nodes[0]
	for _, n := range nodes[1:] {
		lca = lcaPair(lca, n)
	}
	return lca
}

func lcaPair(x, y *Node) *Node {
	ancestors := map[*Node]struct{}{x: {}}
	for n := x.Parent; n != nil; n = n.Parent {
		ancestors[n] = struct{}{}
	}
	n := y
	for {
		if _, ok := ancestors[n]; ok {
			return n
		}
		if n.Parent == nil {
			panic("leastCommonAncestor: no common ancestor")
		}
		n = n.Parent
	}
}

// Simplify computes the least common ancestor of leaves, extracts the
// ordered action queue from root to the LCA (inclusive of the LCA's own
// valuation), detaches the LCA from its parent chain, and clears its
// valuation. The leaf list itself is returned unchanged.
func Simplify(leaves PathLeaves) (PathLeaves, []Action) {
	var output []Action
	if len(leaves) == 0 {
		return leaves, output
	}
	lca := leastCommonAncestor(leaves)
	if lca.Valuation != nil {
		output = append(output, lca.Valuation)
	}
	node := lca
	for node.Parent != nil {
		node = node.Parent
		if node.Valuation != nil {
			output = append(output, node.Valuation)
		}
	}
	reverse(output)
	lca.Parent = nil
	lca.Valuation = nil
	return leaves, output
}

func reverse(a []Action) {
	for i, j := 0, len(a)-1; i < j; i, j = i+1, j-1 {
		a[i], a[j] = a[j], a[i]
	}
}
