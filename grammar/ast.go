package grammar

import (
	"github.com/ricky0123/vocoder/attribute"
	"github.com/ricky0123/vocoder/internal/setutil"
	"github.com/ricky0123/vocoder/runtime"
	"github.com/ricky0123/vocoder/soft"
	"github.com/ricky0123/vocoder/verr"
)

// Node is the closed set of AST variants a compiled grammar is built
// from: concatenation, alternation, nonterminal reference, attributed
// expression, lexicon reference, positional capture, named capture,
// closure, positive closure, optional, within-utterance expression,
// and null. Every node threads an initial and final SOFT state
// through compile, carrying a within-utterance flag (wu) and a
// value-producing flag (ret).
type Node interface {
	compile(s *soft.Soft, rules map[string]Node, initial, final int, wu, ret bool) error
	nullable(rules map[string]Node) bool
	nonterminalDeps() map[string]struct{}
	iterNodes(yield func(Node))
}

// CompileAST runs the pre-checks (undefined/circular nonterminal,
// closure-over-nullable, attribute arity) and compiles rules["start"]
// into a fresh *soft.Soft.
func CompileAST(rules map[string]Node, attrs *attribute.Registry) (*soft.Soft, error) {
	if _, ok := rules["start"]; !ok {
		return nil, verr.New(verr.ErrConfig, "grammar has no !start rule")
	}

	deps := map[string]map[string]struct{}{}
	for name, node := range rules {
		deps[name] = node.nonterminalDeps()
	}
	for _, nodeDeps := range deps {
		for nt := range nodeDeps {
			if _, ok := rules[nt]; !ok {
				return nil, verr.New(verr.ErrUndefinedNonterminal, "!"+nt+" not defined")
			}
		}
	}
	closure := setutil.TransitiveClosure(deps)
	for nt, reached := range closure {
		if _, ok := reached[nt]; ok {
			return nil, verr.New(verr.ErrCircularNonterminal, "circular definition for !"+nt)
		}
	}

	var walkErr error
	for _, top := range rules {
		top.iterNodes(func(n Node) {
			if walkErr != nil {
				return
			}
			switch node := n.(type) {
			case *Closure:
				if node.Child.nullable(rules) {
					walkErr = verr.New(verr.ErrConfig, "closures cannot have nullable children")
				}
			case *PositiveClosure:
				if node.Child.nullable(rules) {
					walkErr = verr.New(verr.ErrConfig, "closures cannot have nullable children")
				}
			case *AttributedExpression:
				walkErr = node.validate()
			}
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}

	s := soft.New()
	final := s.NewState()
	if err := rules["start"].compile(s, rules, s.Initial, final, false, false); err != nil {
		return nil, err
	}
	return s, nil
}

func unionDeps(children []Node) map[string]struct{} {
	out := map[string]struct{}{}
	for _, c := range children {
		for nt := range c.nonterminalDeps() {
			out[nt] = struct{}{}
		}
	}
	return out
}

// Cat is concatenation: children compiled in left-to-right order.
type Cat struct {
	Children []Node
}

func (n *Cat) compile(s *soft.Soft, rules map[string]Node, initial, final int, wu, ret bool) error {
	if ret {
		initial = soft.AddSkip(s, initial, runtime.PushMutable(func() any { return &runtime.List{} }))
	}
	for _, child := range n.Children {
		if !wu && !child.nullable(rules) {
			initial = soft.AddBatchSeparatorReflection(s, initial)
		}
		childFinal := s.NewState()
		if err := child.compile(s, rules, initial, childFinal, wu, ret); err != nil {
			return err
		}
		if ret {
			initial = soft.AddSkip(s, childFinal, runtime.Action(runtime.Snoc))
		} else {
			initial = childFinal
		}
	}
	soft.AddSkip(s, initial, nil, final)
	return nil
}

func (n *Cat) nullable(rules map[string]Node) bool {
	for _, c := range n.Children {
		if !c.nullable(rules) {
			return false
		}
	}
	return true
}

func (n *Cat) nonterminalDeps() map[string]struct{} { return unionDeps(n.Children) }

func (n *Cat) iterNodes(yield func(Node)) {
	yield(n)
	for _, c := range n.Children {
		c.iterNodes(yield)
	}
}

// Alt is alternation: a choice transition of size len(Children).
type Alt struct {
	Children []Node
}

func (n *Alt) compile(s *soft.Soft, rules map[string]Node, initial, final int, wu, ret bool) error {
	allNullable := true
	for _, c := range n.Children {
		if !c.nullable(rules) {
			allNullable = false
			break
		}
	}
	if !wu && !allNullable {
		initial = soft.AddBatchSeparatorReflection(s, initial)
	}
	states := soft.AddChoice(s, initial, nil, nil, len(n.Children))
	for i, child := range n.Children {
		if err := child.compile(s, rules, states[i], final, wu, ret); err != nil {
			return err
		}
	}
	return nil
}

func (n *Alt) nullable(rules map[string]Node) bool {
	for _, c := range n.Children {
		if c.nullable(rules) {
			return true
		}
	}
	return false
}

func (n *Alt) nonterminalDeps() map[string]struct{} { return unionDeps(n.Children) }

func (n *Alt) iterNodes(yield func(Node)) {
	yield(n)
	for _, c := range n.Children {
		c.iterNodes(yield)
	}
}

// Nonterminal is a reference to another named rule, compiled in place.
type Nonterminal struct {
	Name string
}

func (n *Nonterminal) compile(s *soft.Soft, rules map[string]Node, initial, final int, wu, ret bool) error {
	return rules[n.Name].compile(s, rules, initial, final, wu, ret)
}

func (n *Nonterminal) nullable(rules map[string]Node) bool { return rules[n.Name].nullable(rules) }

func (n *Nonterminal) nonterminalDeps() map[string]struct{} {
	return map[string]struct{}{n.Name: {}}
}

func (n *Nonterminal) iterNodes(yield func(Node)) { yield(n) }

// AttributedExpression wraps a child expression with a user callback
// invoked once the wrapped expression's captures are all populated.
// AttributeName is resolved into Attribute (and CaptureKeys populated)
// by a pass over the whole rule set once every lexicon/attribute
// assignment has been registered; compile/validate only ever look at
// the resolved fields.
type AttributedExpression struct {
	Expression    Node
	AttributeName string
	Attribute     attribute.Callback
	CaptureKeys   map[any]struct{}
}

func (n *AttributedExpression) validate() error {
	maxIntKey := -1
	intKeys := map[int]struct{}{}
	for k := range n.CaptureKeys {
		if i, ok := k.(int); ok {
			intKeys[i] = struct{}{}
			if i > maxIntKey {
				maxIntKey = i
			}
		}
	}
	if len(intKeys) > 0 {
		for i := 1; i <= maxIntKey; i++ {
			if _, ok := intKeys[i]; !ok {
				return verr.New(verr.ErrConfig, "attribute signature does not match captures")
			}
		}
		if len(intKeys) != maxIntKey {
			return verr.New(verr.ErrConfig, "attribute signature does not match captures")
		}
	}

	nonEnvParams := 0
	paramSet := map[string]struct{}{}
	for _, p := range n.Attribute.Params {
		paramSet[p] = struct{}{}
		if p != "env" {
			nonEnvParams++
		}
	}
	if nonEnvParams != len(n.CaptureKeys) {
		return verr.New(verr.ErrConfig, "incorrect number of attribute args")
	}
	for k := range n.CaptureKeys {
		if name, ok := k.(string); ok {
			if _, ok := paramSet[name]; !ok {
				return verr.New(verr.ErrConfig, "named capture with no corresponding attribute arg")
			}
		}
	}
	return nil
}

func (n *AttributedExpression) compile(s *soft.Soft, rules map[string]Node, initial, final int, wu, ret bool) error {
	penultimate := s.NewState()
	initial = soft.AddSkip(s, initial, runtime.PushNamespace(n.CaptureKeys))
	if err := n.Expression.compile(s, rules, initial, penultimate, wu, true); err != nil {
		return err
	}
	soft.AddSkip(s, penultimate, attributedExpressionAction(n.Attribute, ret), final)
	return nil
}

func (n *AttributedExpression) nullable(rules map[string]Node) bool { return n.Expression.nullable(rules) }

func (n *AttributedExpression) nonterminalDeps() map[string]struct{} {
	return n.Expression.nonterminalDeps()
}

func (n *AttributedExpression) iterNodes(yield func(Node)) {
	yield(n)
	n.Expression.iterNodes(yield)
}

// Lexicon is a terminal: consumes one word belonging to the named
// lexicon predicate.
type Lexicon struct {
	Predicate string
}

func (n *Lexicon) compile(s *soft.Soft, rules map[string]Node, initial, final int, wu, ret bool) error {
	if !wu {
		initial = soft.AddBatchSeparatorReflection(s, initial)
	}
	soft.AddSymbol(s, initial, n.Predicate, lexiconAction(n.Predicate, ret), final)
	return nil
}

func (n *Lexicon) nullable(rules map[string]Node) bool { return false }

func (n *Lexicon) nonterminalDeps() map[string]struct{} { return map[string]struct{}{} }

func (n *Lexicon) iterNodes(yield func(Node)) { yield(n) }

// PositionalCapture writes its child's value into namespace[N].
type PositionalCapture struct {
	Child    Node
	Position int
}

func (n *PositionalCapture) compile(s *soft.Soft, rules map[string]Node, initial, final int, wu, ret bool) error {
	if !ret {
		return verr.New(verr.ErrConfig, "capture outside a value-producing context")
	}
	intermediate := s.NewState()
	if err := n.Child.compile(s, rules, initial, intermediate, wu, ret); err != nil {
		return err
	}
	soft.AddSkip(s, intermediate, positionalCaptureAction(n.Position), final)
	return nil
}

func (n *PositionalCapture) nullable(rules map[string]Node) bool { return n.Child.nullable(rules) }

func (n *PositionalCapture) nonterminalDeps() map[string]struct{} { return n.Child.nonterminalDeps() }

func (n *PositionalCapture) iterNodes(yield func(Node)) {
	yield(n)
	n.Child.iterNodes(yield)
}

// NamedCapture writes its child's value into namespace[alias].
type NamedCapture struct {
	Child Node
	Alias string
}

func (n *NamedCapture) compile(s *soft.Soft, rules map[string]Node, initial, final int, wu, ret bool) error {
	if !ret {
		return verr.New(verr.ErrConfig, "capture outside a value-producing context")
	}
	intermediate := s.NewState()
	if err := n.Child.compile(s, rules, initial, intermediate, wu, ret); err != nil {
		return err
	}
	soft.AddSkip(s, intermediate, namedCaptureAction(n.Alias), final)
	return nil
}

func (n *NamedCapture) nullable(rules map[string]Node) bool { return n.Child.nullable(rules) }

func (n *NamedCapture) nonterminalDeps() map[string]struct{} { return n.Child.nonterminalDeps() }

func (n *NamedCapture) iterNodes(yield func(Node)) {
	yield(n)
	n.Child.iterNodes(yield)
}

// Null is epsilon: consumes nothing, optionally pushing nil.
type Null struct{}

func (n *Null) compile(s *soft.Soft, rules map[string]Node, initial, final int, wu, ret bool) error {
	var output runtime.Action
	if ret {
		output = runtime.PushImmutable(nil)
	}
	soft.AddSkip(s, initial, output, final)
	return nil
}

func (n *Null) nullable(rules map[string]Node) bool { return true }

func (n *Null) nonterminalDeps() map[string]struct{} { return map[string]struct{}{} }

func (n *Null) iterNodes(yield func(Node)) { yield(n) }

// Closure is the Kleene star: zero or more repetitions.
type Closure struct {
	Child       Node
	CaptureKeys map[any]struct{}
}

func (n *Closure) compile(s *soft.Soft, rules map[string]Node, initial, final int, wu, ret bool) error {
	if !ret {
		nextStates := soft.AddChoice(s, initial, nil, []int{soft.FreshState, final}, 2)
		next := nextStates[0]
		if !wu {
			next = soft.AddBatchSeparatorReflection(s, next)
		}
		return n.Child.compile(s, rules, next, initial, wu, ret)
	}

	state2 := soft.AddSkip(s, initial, runtime.PushMutable(func() any { return &runtime.ClosureValue{} }))
	states := soft.AddChoice(s, state2, nil, []int{soft.FreshState, final}, 2)
	state3 := states[0]
	if !wu {
		state3 = soft.AddBatchSeparatorReflection(s, state3)
	}
	state4 := soft.AddSkip(s, state3, runtime.PushNamespace(n.CaptureKeys))
	state5 := s.NewState()
	if err := n.Child.compile(s, rules, state4, state5, wu, ret); err != nil {
		return err
	}
	soft.AddSkip(s, state5, runtime.Sequence(runtime.Snoc, runtime.SnocClosureNamespace), state2)
	return nil
}

func (n *Closure) nullable(rules map[string]Node) bool { return true }

func (n *Closure) nonterminalDeps() map[string]struct{} { return n.Child.nonterminalDeps() }

func (n *Closure) iterNodes(yield func(Node)) {
	yield(n)
	n.Child.iterNodes(yield)
}

// PositiveClosure is the Kleene plus: one or more repetitions.
type PositiveClosure struct {
	Child       Node
	CaptureKeys map[any]struct{}
}

func (n *PositiveClosure) compile(s *soft.Soft, rules map[string]Node, initial, final int, wu, ret bool) error {
	if !ret {
		var second int
		if !wu {
			second = soft.AddBatchSeparatorReflection(s, initial)
		} else {
			second = soft.AddSkip(s, initial, nil)
		}
		penultimate := s.NewState()
		if err := n.Child.compile(s, rules, second, penultimate, wu, ret); err != nil {
			return err
		}
		soft.AddChoice(s, penultimate, nil, []int{initial, final}, 2)
		return nil
	}

	initial = soft.AddSkip(s, initial, runtime.PushMutable(func() any { return &runtime.ClosureValue{} }))
	var second int
	if !wu {
		second = soft.AddBatchSeparatorReflection(s, initial)
	} else {
		second = soft.AddSkip(s, initial, nil)
	}
	childInitial := soft.AddSkip(s, second, runtime.PushNamespace(n.CaptureKeys))
	penultimate := s.NewState()
	childFinal := s.NewState()
	if err := n.Child.compile(s, rules, childInitial, childFinal, wu, ret); err != nil {
		return err
	}
	soft.AddSkip(s, childFinal, runtime.Sequence(runtime.Snoc, runtime.SnocClosureNamespace), penultimate)
	soft.AddChoice(s, penultimate, nil, []int{initial, final}, 2)
	return nil
}

func (n *PositiveClosure) nullable(rules map[string]Node) bool { return n.Child.nullable(rules) }

func (n *PositiveClosure) nonterminalDeps() map[string]struct{} { return n.Child.nonterminalDeps() }

func (n *PositiveClosure) iterNodes(yield func(Node)) {
	yield(n)
	n.Child.iterNodes(yield)
}

// Maybe is the optional: the child or nothing.
type Maybe struct {
	Child Node
}

func (n *Maybe) compile(s *soft.Soft, rules map[string]Node, initial, final int, wu, ret bool) error {
	if !wu && !n.Child.nullable(rules) {
		initial = soft.AddBatchSeparatorReflection(s, initial)
	}
	var childInitial int
	if ret {
		states := soft.AddChoice(s, initial, []soft.Output{nil, runtime.Action(runtime.PushImmutable(nil))}, []int{soft.FreshState, final}, 2)
		childInitial = states[0]
	} else {
		states := soft.AddChoice(s, initial, nil, []int{soft.FreshState, final}, 2)
		childInitial = states[0]
	}
	return n.Child.compile(s, rules, childInitial, final, wu, ret)
}

func (n *Maybe) nullable(rules map[string]Node) bool { return true }

func (n *Maybe) nonterminalDeps() map[string]struct{} { return n.Child.nonterminalDeps() }

func (n *Maybe) iterNodes(yield func(Node)) {
	yield(n)
	n.Child.iterNodes(yield)
}

// WithinUtteranceExpression compiles its child with wu forced true,
// suppressing batch-separator insertion throughout.
type WithinUtteranceExpression struct {
	Child Node
}

func (n *WithinUtteranceExpression) compile(s *soft.Soft, rules map[string]Node, initial, final int, wu, ret bool) error {
	return n.Child.compile(s, rules, initial, final, true, ret)
}

func (n *WithinUtteranceExpression) nullable(rules map[string]Node) bool { return n.Child.nullable(rules) }

func (n *WithinUtteranceExpression) nonterminalDeps() map[string]struct{} {
	return n.Child.nonterminalDeps()
}

func (n *WithinUtteranceExpression) iterNodes(yield func(Node)) {
	yield(n)
	n.Child.iterNodes(yield)
}
