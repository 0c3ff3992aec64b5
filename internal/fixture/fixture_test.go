package fixture

import (
	"strings"
	"testing"
)

const greetingFixture = `hello world with a recording callback
---
%greet(phrase)
---
!start ~= < hello | world > => %greet
---
> hello world
    greet(["hello" "world"])
`

func TestParseTestCase(t *testing.T) {
	tc, err := ParseTestCase(strings.NewReader(greetingFixture))
	if err != nil {
		t.Fatal(err)
	}
	if tc.Description != "hello world with a recording callback" {
		t.Fatalf("wrong description: %q", tc.Description)
	}
	if len(tc.Callbacks) != 1 || tc.Callbacks[0].Name != "greet" {
		t.Fatalf("wrong callbacks: %+v", tc.Callbacks)
	}
	if got := tc.Callbacks[0].Params; len(got) != 1 || got[0] != "phrase" {
		t.Fatalf("wrong params: %v", got)
	}
	if len(tc.Steps) != 1 || tc.Steps[0].Utterance != "hello world" {
		t.Fatalf("wrong steps: %+v", tc.Steps)
	}
	if len(tc.Steps[0].Calls) != 1 || tc.Steps[0].Calls[0] != `greet(["hello" "world"])` {
		t.Fatalf("wrong expected calls: %v", tc.Steps[0].Calls)
	}
}

func TestParseTestCaseErrors(t *testing.T) {
	tests := []struct {
		caption string
		src     string
	}{
		{
			caption: "too few parts",
			src:     "desc\n---\ngrammar\n",
		},
		{
			caption: "malformed callback declaration",
			src:     "desc\n---\nnot a decl\n---\n!start = hello\n---\n",
		},
		{
			caption: "call before any utterance",
			src:     "desc\n---\n---\n!start = hello\n---\n    orphan()\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			if _, err := ParseTestCase(strings.NewReader(tt.src)); err == nil {
				t.Fatal("want a parse error")
			}
		})
	}
}

func TestRunPassingFixture(t *testing.T) {
	tc, err := ParseTestCase(strings.NewReader(greetingFixture))
	if err != nil {
		t.Fatal(err)
	}
	diffs, err := Run(tc)
	if err != nil {
		t.Fatal(err)
	}
	if len(diffs) != 0 {
		t.Fatalf("want no diffs, got %+v", diffs)
	}
}

func TestRunReportsDiffs(t *testing.T) {
	src := `expectation mismatch
---
%greet(phrase)
---
!start ~= < hello | world > => %greet
---
> hello world
    greet(["goodbye"])
`
	tc, err := ParseTestCase(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	diffs, err := Run(tc)
	if err != nil {
		t.Fatal(err)
	}
	if len(diffs) != 1 {
		t.Fatalf("want one diff, got %+v", diffs)
	}
}

func TestRenderValue(t *testing.T) {
	tests := []struct {
		caption string
		value   any
		want    string
	}{
		{caption: "nil", value: nil, want: "nil"},
		{caption: "string", value: "hello", want: `"hello"`},
		{caption: "int", value: 42, want: "42"},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			if got := RenderValue(tt.value); got != tt.want {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDiffCalls(t *testing.T) {
	diffs := DiffCalls("u", []string{"a()", "b()"}, []string{"a()", "c()", "d()"})
	if len(diffs) != 2 {
		t.Fatalf("want 2 diffs, got %+v", diffs)
	}
}
