package runtime

import (
	"errors"
	"testing"
)

func TestPrimitiveActions(t *testing.T) {
	s := &ExecState{}

	PushImmutable("hello")(s)
	PushMutable(func() any { return &List{} })(s)
	if len(s.ValueStack) != 2 {
		t.Fatalf("want 2 values, got %v", len(s.ValueStack))
	}

	// snoc pops the top value into the container beneath it; here the
	// container is on top, so push another value first.
	PushImmutable("world")(s)
	Snoc(s)
	list := s.ValueStack[len(s.ValueStack)-1].(*List)
	if len(list.Items) != 1 || list.Items[0] != "world" {
		t.Fatalf("want [world], got %v", list.Items)
	}
}

func TestPushNamespace(t *testing.T) {
	s := &ExecState{}
	PushNamespace(map[any]struct{}{1: {}, "x": {}})(s)
	ns := s.Namespaces[0]
	if len(ns) != 2 {
		t.Fatalf("want 2 keys, got %v", len(ns))
	}
	for _, k := range []any{1, "x"} {
		v, ok := ns[k]
		if !ok || v != nil {
			t.Fatalf("key %v should be pre-populated as nil", k)
		}
	}
}

func TestSnocClosureNamespace(t *testing.T) {
	s := &ExecState{}
	PushMutable(func() any { return &ClosureValue{} })(s)
	PushNamespace(map[any]struct{}{"x": {}})(s)
	s.Namespaces[0]["x"] = "hello"
	SnocClosureNamespace(s)

	cv := s.ValueStack[0].(*ClosureValue)
	if len(cv.Captures) != 1 || cv.Captures[0]["x"] != "hello" {
		t.Fatalf("namespace was not appended: %+v", cv.Captures)
	}
	if len(s.Namespaces) != 0 {
		t.Fatal("namespace should have been popped")
	}
}

func TestSequence(t *testing.T) {
	s := &ExecState{}
	Sequence(PushImmutable(1), PushImmutable(2))(s)
	if len(s.ValueStack) != 2 || s.ValueStack[0] != 1 || s.ValueStack[1] != 2 {
		t.Fatalf("want [1 2], got %v", s.ValueStack)
	}
}

func TestClosureValueIterCaptures(t *testing.T) {
	cv := &ClosureValue{
		Items: []any{"a", "b"},
		Captures: []Captures{
			{"x": "hello", 1: "one", 2: "uno"},
			{"x": nil, 1: "two"},
		},
	}
	frames := cv.IterCaptures()
	if len(frames) != 2 {
		t.Fatalf("want 2 frames, got %v", len(frames))
	}
	if frames[0].Named["x"] != "hello" || frames[0].Positional[0] != "one" || frames[0].Positional[1] != "uno" {
		t.Fatalf("frame 0 wrong: %+v", frames[0])
	}
	if frames[1].Named["x"] != nil || len(frames[1].Positional) != 1 {
		t.Fatalf("frame 1 wrong: %+v", frames[1])
	}
}

func TestExecutorSwallowsAttributeFailures(t *testing.T) {
	e := NewExecutor(func(string, string) any { return nil }, nil)

	ran := false
	e.Eat(nil, []Action{
		func(*ExecState) { panic(&ErrAttributeFailed{Err: errors.New("user callback broke")}) },
		func(*ExecState) { ran = true },
	})
	if !ran {
		t.Fatal("actions after a failed attribute should still run")
	}
}

func TestExecutorPropagatesOtherPanics(t *testing.T) {
	e := NewExecutor(func(string, string) any { return nil }, nil)
	defer func() {
		if recover() == nil {
			t.Fatal("non-attribute panic should propagate")
		}
	}()
	e.Eat(nil, []Action{func(*ExecState) { panic("fatal") }})
}

func TestExecutorQueuesWords(t *testing.T) {
	e := NewExecutor(func(lex, word string) any { return lex + ":" + word }, nil)

	var got []string
	consume := func(s *ExecState) {
		w := s.Words[0]
		s.Words = s.Words[1:]
		got = append(got, s.Attributor("l", w).(string))
	}
	e.Eat([]string{"hello", "world"}, []Action{consume, consume})
	if len(got) != 2 || got[0] != "l:hello" || got[1] != "l:world" {
		t.Fatalf("want queued words in order, got %v", got)
	}
}
