package runtime

import (
	"log"
)

// Captures is a capture namespace: keys are either an int (positional
// slot) or a string (named slot); values default to nil until a
// PositionalCapture/NamedCapture action writes into them.
type Captures map[any]any

// NewCaptures allocates a namespace with the given keys pre-populated as
// nil, so capture writes always find their slot.
func NewCaptures(keys map[any]struct{}) Captures {
	c := make(Captures, len(keys))
	for k := range keys {
		c[k] = nil
	}
	return c
}

// Appender is satisfied by the two mutable value-stack containers snoc
// can append into: *List and *ClosureValue.
type Appender interface {
	Append(v any)
}

// List is a plain ordered collection, the runtime representation of a
// Cat node's collected child values.
type List struct {
	Items []any
}

func (l *List) Append(v any) { l.Items = append(l.Items, v) }

// ClosureValue is the value produced by a value-returning Closure or
// PositiveClosure: one item per iteration, plus a parallel slice of the
// namespace captured during that iteration.
type ClosureValue struct {
	Items    []any
	Captures []Captures
}

func (c *ClosureValue) Append(v any) { c.Items = append(c.Items, v) }

// IterCaptures yields, for each iteration, the named capture namespace
// (as a map) alongside the positional captures 1..K in order — the
// shape an attribute callback bound to a closure's captures receives.
func (c *ClosureValue) IterCaptures() []CaptureFrame {
	out := make([]CaptureFrame, 0, len(c.Captures))
	for _, ns := range c.Captures {
		out = append(out, captureFrame(ns))
	}
	return out
}

// CaptureFrame is one iteration's captures, split into named and
// positional per IterCaptures.
type CaptureFrame struct {
	Named      map[string]any
	Positional []any
}

func captureFrame(ns Captures) CaptureFrame {
	named := map[string]any{}
	for k, v := range ns {
		if s, ok := k.(string); ok {
			named[s] = v
		}
	}
	var pos []any
	for i := 1; ; i++ {
		v, ok := ns[i]
		if !ok {
			break
		}
		pos = append(pos, v)
	}
	return CaptureFrame{Named: named, Positional: pos}
}

// LexiconAttributor resolves (lexicon name, word) to an attribute value,
// backed by the lexicon registry.
type LexiconAttributor func(lexiconName, word string) any

// ExecState is the mutable runtime state an Action operates on: the word
// queue, value stack, namespace stack, and the opaque environment object
// passed through to user callbacks.
type ExecState struct {
	Words      []string
	ValueStack []any
	Namespaces []Captures
	Env        any
	Attributor LexiconAttributor
}

func (s *ExecState) popWord() string {
	w := s.Words[0]
	s.Words = s.Words[1:]
	return w
}

func (s *ExecState) pushValue(v any)  { s.ValueStack = append(s.ValueStack, v) }
func (s *ExecState) popValue() any {
	v := s.ValueStack[len(s.ValueStack)-1]
	s.ValueStack = s.ValueStack[:len(s.ValueStack)-1]
	return v
}
func (s *ExecState) peekValue() any { return s.ValueStack[len(s.ValueStack)-1] }

func (s *ExecState) pushNamespace(ns Captures) { s.Namespaces = append(s.Namespaces, ns) }
func (s *ExecState) popNamespace() Captures {
	ns := s.Namespaces[len(s.Namespaces)-1]
	s.Namespaces = s.Namespaces[:len(s.Namespaces)-1]
	return ns
}

// Action is a compiled output: a closure over immutable compile-time
// data operating on the shared runtime ExecState. Attached to SOFT
// transitions as soft.Output.
type Action func(*ExecState)

// PushImmutable pushes the fixed value v.
func PushImmutable(v any) Action {
	return func(s *ExecState) { s.pushValue(v) }
}

// PushMutable pushes a freshly constructed mutable container.
func PushMutable(ctor func() any) Action {
	return func(s *ExecState) { s.pushValue(ctor()) }
}

// Snoc pops one value and appends it to the (now new top-of-stack)
// mutable container beneath it.
func Snoc(s *ExecState) {
	v := s.popValue()
	s.peekValue().(Appender).Append(v)
}

// PushNamespace pushes a fresh namespace pre-populated with keys.
func PushNamespace(keys map[any]struct{}) Action {
	return func(s *ExecState) { s.pushNamespace(NewCaptures(keys)) }
}

// SnocClosureNamespace pops one namespace and appends it to the
// ClosureValue currently on top of the value stack.
func SnocClosureNamespace(s *ExecState) {
	ns := s.popNamespace()
	s.peekValue().(*ClosureValue).Captures = append(s.peekValue().(*ClosureValue).Captures, ns)
}

// Sequence runs the given actions in order as a single Action.
func Sequence(actions ...Action) Action {
	return func(s *ExecState) {
		for _, a := range actions {
			a(s)
		}
	}
}

// ErrAttributeFailed marks an error raised by a user callback; logged
// and swallowed by Executor.Eat, unlike any other panic/error which is
// fatal and propagates.
type ErrAttributeFailed struct{ Err error }

func (e *ErrAttributeFailed) Error() string { return "attribute failed: " + e.Err.Error() }
func (e *ErrAttributeFailed) Unwrap() error { return e.Err }

// Executor applies a queue of output Actions to its word queue, value
// stack, and namespace stack in order.
type Executor struct {
	attributor LexiconAttributor
	env        any
	state      ExecState
}

// NewExecutor returns an Executor whose user callbacks see env as their
// `env` argument and whose Lexicon captures resolve through attributor.
func NewExecutor(attributor LexiconAttributor, env any) *Executor {
	return &Executor{
		attributor: attributor,
		env:        env,
		state: ExecState{
			Attributor: attributor,
			Env:        env,
		},
	}
}

// Eat enqueues newWords and then runs each action in order. A panic
// raised by a user callback surfaces as ErrAttributeFailed: logged here
// and swallowed, so subsequent actions still run. Any other panic is
// re-raised.
func (e *Executor) Eat(newWords []string, actions []Action) {
	e.state.Words = append(e.state.Words, newWords...)
	for _, action := range actions {
		e.runOne(action)
	}
}

func (e *Executor) runOne(action Action) {
	defer func() {
		if r := recover(); r != nil {
			if af, ok := r.(*ErrAttributeFailed); ok {
				log.Printf("vocoder: attribute failed: %v", af.Err)
				return
			}
			panic(r)
		}
	}()
	action(&e.state)
}
