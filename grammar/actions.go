package grammar

import (
	"github.com/ricky0123/vocoder/attribute"
	"github.com/ricky0123/vocoder/runtime"
)

// lexiconAction pops one word off the word queue and, when ret, pushes
// its attribute lookup under predicate.
func lexiconAction(predicate string, ret bool) runtime.Action {
	return func(s *runtime.ExecState) {
		word := s.Words[0]
		s.Words = s.Words[1:]
		if ret {
			s.ValueStack = append(s.ValueStack, s.Attributor(predicate, word))
		}
	}
}

// positionalCaptureAction peeks the top value and writes it into
// namespace[position] of the current (also peeked, not popped)
// namespace.
func positionalCaptureAction(position int) runtime.Action {
	return func(s *runtime.ExecState) {
		value := s.ValueStack[len(s.ValueStack)-1]
		s.Namespaces[len(s.Namespaces)-1][position] = value
	}
}

// namedCaptureAction is positionalCaptureAction's named-key analogue.
func namedCaptureAction(alias string) runtime.Action {
	return func(s *runtime.ExecState) {
		value := s.ValueStack[len(s.ValueStack)-1]
		s.Namespaces[len(s.Namespaces)-1][alias] = value
	}
}

// attributedExpressionAction pops one value and one namespace, binds
// the namespace's captures to cb's declared Params (env -> the
// environment value, named keys by name, remaining positional slots
// 1..K in order), invokes cb.Fn, and on error panics *runtime.
// ErrAttributeFailed for Executor.runOne to catch and log. When ret,
// the callback's return value is pushed.
func attributedExpressionAction(cb attribute.Callback, ret bool) runtime.Action {
	return func(s *runtime.ExecState) {
		s.ValueStack = s.ValueStack[:len(s.ValueStack)-1]
		namespace := s.Namespaces[len(s.Namespaces)-1]
		s.Namespaces = s.Namespaces[:len(s.Namespaces)-1]

		args := make([]any, 0, len(cb.Params))
		positionalSlot := 1
		for _, param := range cb.Params {
			switch {
			case param == "env":
				args = append(args, s.Env)
			case namespaceHasName(namespace, param):
				args = append(args, namespace[param])
			default:
				args = append(args, namespace[positionalSlot])
				positionalSlot++
			}
		}

		value, err := cb.Fn(args)
		if err != nil {
			panic(&runtime.ErrAttributeFailed{Err: err})
		}
		if ret {
			s.ValueStack = append(s.ValueStack, value)
		}
	}
}

func namespaceHasName(ns runtime.Captures, name string) bool {
	_, ok := ns[name]
	return ok
}
