// Package soft implements the nondeterministic Symbolic Ordered Finite
// Transducer: the compiled automaton of symbol, skip, and ordered-choice
// transitions that the grammar compiler emits and the runtime engine
// steps over.
package soft

import "fmt"

// SpecialPredicate marks a symbol transition predicate that is not a
// lexicon name. The only special predicate is the inter-word boundary
// marker inserted by batch-separator reflections.
type SpecialPredicate int

const BatchSeparator SpecialPredicate = 1

// Predicate is either a lexicon identifier (string) or a SpecialPredicate.
type Predicate any

// Output is an opaque action attached to a transition; absent means nil.
// The grammar compiler populates it with runtime.Action values, but soft
// itself never interprets it.
type Output any

// SkipTransition consumes nothing.
type SkipTransition struct {
	Source int
	Target int
	Output Output
}

// ChoiceTransition is one ordered branch of a choice state; lower Cost is
// preferred at tie-break time.
type ChoiceTransition struct {
	Source int
	Target int
	Cost   int
	Output Output
}

// SymbolTransition consumes one word matching Predicate.
type SymbolTransition struct {
	Source    int
	Target    int
	Predicate Predicate
	Output    Output
}

// Transition is the union of the three transition kinds, for callers
// that only need source/target bookkeeping (e.g. the path-tree engine's
// Node.ParentTransition).
type Transition any

// StateType classifies a SOFT state; every state belongs to exactly one
// kind.
type StateType int

const (
	StateSymbol StateType = iota
	StateSkip
	StateChoice
	StateFinal
)

func (t StateType) String() string {
	switch t {
	case StateSymbol:
		return "symbol"
	case StateSkip:
		return "skip"
	case StateChoice:
		return "choice"
	case StateFinal:
		return "final"
	default:
		return "unknown"
	}
}

// Soft is the compiled automaton. State 0 is always the initial state.
type Soft struct {
	Initial           int
	ChoiceTransitions map[int][]ChoiceTransition
	SkipTransitions   map[int]SkipTransition
	SymbolTransitions map[int]SymbolTransition

	nonce int
}

// New returns an empty Soft with state 0 reserved as the initial state.
func New() *Soft {
	return &Soft{
		Initial:           0,
		ChoiceTransitions: map[int][]ChoiceTransition{},
		SkipTransitions:   map[int]SkipTransition{},
		SymbolTransitions: map[int]SymbolTransition{},
		nonce:             1,
	}
}

// NewState allocates and returns a fresh, as-yet-untransitioned state.
func (s *Soft) NewState() int {
	st := s.nonce
	s.nonce++
	return st
}

func (s *Soft) IsSymbolState(state int) bool {
	_, ok := s.SymbolTransitions[state]
	return ok
}

func (s *Soft) IsSkipState(state int) bool {
	_, ok := s.SkipTransitions[state]
	return ok
}

func (s *Soft) IsChoiceState(state int) bool {
	_, ok := s.ChoiceTransitions[state]
	return ok
}

// IsFinalState reports whether state originates no transition at all —
// a state is final iff it is none of symbol/skip/choice.
func (s *Soft) IsFinalState(state int) bool {
	return !s.IsSymbolState(state) && !s.IsSkipState(state) && !s.IsChoiceState(state)
}

// StateType classifies state into exactly one of the four kinds.
func (s *Soft) StateType(state int) StateType {
	switch {
	case s.IsChoiceState(state):
		return StateChoice
	case s.IsSkipState(state):
		return StateSkip
	case s.IsSymbolState(state):
		return StateSymbol
	default:
		return StateFinal
	}
}

// AddSkip adds a skip transition from state, to nextState if given or a
// freshly allocated state otherwise, and returns the target state.
func AddSkip(s *Soft, state int, output Output, nextState ...int) int {
	target := resolveTarget(s, nextState)
	s.SkipTransitions[state] = SkipTransition{Source: state, Target: target, Output: output}
	return target
}

// AddSymbol adds a symbol transition from state on predicate, to
// nextState if given or a freshly allocated state otherwise, and returns
// the target state.
func AddSymbol(s *Soft, state int, predicate Predicate, output Output, nextState ...int) int {
	target := resolveTarget(s, nextState)
	s.SymbolTransitions[state] = SymbolTransition{Source: state, Target: target, Predicate: predicate, Output: output}
	return target
}

// FreshState marks a nextStates slot in AddChoice that should receive a
// newly allocated state. State 0 is the live initial state, so it
// cannot double as the marker: choice branches loop back to it whenever
// a closure sits at the top of the grammar.
const FreshState = -1

// AddChoice adds n (or len(outputs)/len(nextStates), whichever is
// larger) choice transitions from state, in ascending cost order, and
// returns the resulting target states in the same order. A nextStates
// entry of FreshState (and every slot beyond the slice) gets a fresh
// state.
func AddChoice(s *Soft, state int, outputs []Output, nextStates []int, n int) []int {
	if len(outputs) > n {
		n = len(outputs)
	}
	if len(nextStates) > n {
		n = len(nextStates)
	}

	out := make([]int, n)
	for i := 0; i < n; i++ {
		var output Output
		if i < len(outputs) {
			output = outputs[i]
		}
		var target int
		if i < len(nextStates) && nextStates[i] != FreshState {
			target = nextStates[i]
		} else {
			target = s.NewState()
		}
		out[i] = target
		s.ChoiceTransitions[state] = append(s.ChoiceTransitions[state], ChoiceTransition{
			Source: state,
			Target: target,
			Cost:   i,
			Output: output,
		})
	}
	return out
}

// AddBatchSeparatorReflection inserts, at state, the gadget that allows
// zero or more BatchSeparator symbols to be consumed before continuing:
// a skip into a two-way choice, one branch looping back via a
// BatchSeparator symbol transition, the other continuing on.
func AddBatchSeparatorReflection(s *Soft, state int) int {
	loopPoint := AddSkip(s, state, nil)
	branches := AddChoice(s, loopPoint, nil, nil, 2)
	AddSymbol(s, branches[0], BatchSeparator, nil, loopPoint)
	return AddSkip(s, branches[1], nil)
}

func resolveTarget(s *Soft, nextState []int) int {
	if len(nextState) > 0 {
		return nextState[0]
	}
	return s.NewState()
}

func (s *Soft) String() string {
	return fmt.Sprintf("Soft{initial=%d states=%d}", s.Initial, len(s.SymbolTransitions)+len(s.SkipTransitions)+len(s.ChoiceTransitions))
}
