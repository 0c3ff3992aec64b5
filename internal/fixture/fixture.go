// Package fixture implements the text fixture format the vocoderc test
// command and the package tests share: a grammar, the recording
// callbacks it binds, and a script of utterances with the callback
// invocations each one is expected to produce.
package fixture

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ricky0123/vocoder"
	"github.com/ricky0123/vocoder/runtime"
)

// TestCase is one parsed fixture file. Its four dash-separated parts
// are a free-text description, callback declarations, DSL source, and
// the utterance script.
type TestCase struct {
	Description string
	Callbacks   []CallbackDecl
	Grammar     string
	Steps       []Step
}

// CallbackDecl declares a recording callback the grammar may reference
// as %Name. Params follow the attribute binding rules: "env" receives
// the environment, every other name binds a capture.
type CallbackDecl struct {
	Name   string
	Params []string
}

// Step is one scripted utterance and the callback invocations it is
// expected to produce, rendered as `name(arg, arg)` strings.
type Step struct {
	Utterance string
	Calls     []string
}

var callbackDeclRe = regexp.MustCompile(`^%([a-z_][a-z0-9_']*)\(([^)]*)\)$`)

// ParseTestCase reads one fixture from r. The format is four parts
// separated by lines containing only `---`:
//
//	hello and world phrases
//	---
//	%note(words)
//	---
//	!start = < ~< hello | world > -> %note >
//	---
//	> hello world
//	    note(["hello" "world"])
//	> hello
//	    note(["hello"])
//
// Utterance lines in the script start with `> `; the indented lines
// beneath one are its expected calls, in order.
func ParseTestCase(r io.Reader) (*TestCase, error) {
	parts, err := splitIntoParts(r)
	if err != nil {
		return nil, err
	}
	if len(parts) != 4 {
		return nil, fmt.Errorf("a test case consists of just four parts: %v parts found", len(parts))
	}

	tc := &TestCase{
		Description: strings.TrimSpace(parts[0]),
		Grammar:     parts[2],
	}

	for _, line := range strings.Split(parts[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := callbackDeclRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("malformed callback declaration: %q", line)
		}
		decl := CallbackDecl{Name: m[1]}
		for _, p := range strings.Split(m[2], ",") {
			if p = strings.TrimSpace(p); p != "" {
				decl.Params = append(decl.Params, p)
			}
		}
		tc.Callbacks = append(tc.Callbacks, decl)
	}

	var step *Step
	for _, line := range strings.Split(parts[3], "\n") {
		switch {
		case strings.HasPrefix(line, ">"):
			tc.Steps = append(tc.Steps, Step{Utterance: strings.TrimSpace(line[1:])})
			step = &tc.Steps[len(tc.Steps)-1]
		case strings.TrimSpace(line) == "":
		case step == nil:
			return nil, fmt.Errorf("expected call %q precedes any utterance", strings.TrimSpace(line))
		default:
			step.Calls = append(step.Calls, strings.TrimSpace(line))
		}
	}

	return tc, nil
}

func splitIntoParts(r io.Reader) ([]string, error) {
	var parts []string
	var buf strings.Builder
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()
		if strings.TrimSpace(line) == "---" {
			parts = append(parts, buf.String())
			buf.Reset()
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	parts = append(parts, buf.String())
	return parts, nil
}

// TestCaseWithMetadata pairs a parsed fixture with its path, or the
// error that kept it from parsing.
type TestCaseWithMetadata struct {
	TestCase *TestCase
	FilePath string
	Error    error
}

// ListTestCases loads the fixture at testPath, or every fixture under
// it when it is a directory.
func ListTestCases(testPath string) []*TestCaseWithMetadata {
	fi, err := os.Stat(testPath)
	if err != nil {
		return []*TestCaseWithMetadata{{FilePath: testPath, Error: err}}
	}
	if !fi.IsDir() {
		c, err := parseTestCaseFile(testPath)
		return []*TestCaseWithMetadata{{TestCase: c, FilePath: testPath, Error: err}}
	}

	es, err := os.ReadDir(testPath)
	if err != nil {
		return []*TestCaseWithMetadata{{FilePath: testPath, Error: err}}
	}
	var cases []*TestCaseWithMetadata
	for _, e := range es {
		cases = append(cases, ListTestCases(filepath.Join(testPath, e.Name()))...)
	}
	return cases
}

func parseTestCaseFile(path string) (*TestCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTestCase(f)
}

// Recorder collects rendered callback invocations in execution order.
type Recorder struct {
	Calls []string
}

// Drain returns the calls recorded since the last Drain.
func (r *Recorder) Drain() []string {
	out := r.Calls
	r.Calls = nil
	return out
}

// NewGrammar builds a vocoder.Grammar from tc: every declared callback
// is registered as a recording stub feeding rec, then the fixture's
// grammar source is appended.
func NewGrammar(tc *TestCase, rec *Recorder) *vocoder.Grammar {
	g := vocoder.NewGrammar()
	for _, decl := range tc.Callbacks {
		decl := decl
		g.NamedCallback(decl.Name, func(args []any) (any, error) {
			var rendered []string
			for i, arg := range args {
				if decl.Params[i] == "env" {
					continue
				}
				rendered = append(rendered, RenderValue(arg))
			}
			rec.Calls = append(rec.Calls, fmt.Sprintf("%s(%s)", decl.Name, strings.Join(rendered, ", ")))
			return nil, nil
		}, decl.Params...)
	}
	g.Fragment(tc.Grammar)
	return g
}

// RenderValue renders a callback argument the way fixture expectations
// are written: strings quoted, nil literal, list-like runtime values as
// bracketed element lists.
func RenderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(val)
	case *runtime.List:
		return renderItems(val.Items)
	case *runtime.ClosureValue:
		return renderItems(val.Items)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func renderItems(items []any) string {
	rendered := make([]string, len(items))
	for i, item := range items {
		rendered[i] = RenderValue(item)
	}
	return "[" + strings.Join(rendered, " ") + "]"
}

// CallDiff is one observed-vs-expected mismatch in a step's calls.
type CallDiff struct {
	Utterance string
	Message   string
}

// Run compiles tc's grammar, drives every scripted utterance through a
// fresh engine, and diffs the recorded callback invocations against
// each step's expectations. A compile or simulation error is returned
// as err; mismatches come back as diffs.
func Run(tc *TestCase) (diffs []*CallDiff, err error) {
	rec := &Recorder{}
	compiled, err := NewGrammar(tc, rec).Compile()
	if err != nil {
		return nil, err
	}
	engine := compiled.NewEngine(nil)
	rec.Drain()

	for _, step := range tc.Steps {
		if _, err := engine.Text(step.Utterance); err != nil {
			return diffs, fmt.Errorf("utterance %q: %w", step.Utterance, err)
		}
		diffs = append(diffs, DiffCalls(step.Utterance, step.Calls, rec.Drain())...)
	}
	return diffs, nil
}

// DiffCalls compares the expected and observed call lists for one
// utterance, pairwise and by count.
func DiffCalls(utterance string, expected, actual []string) []*CallDiff {
	var diffs []*CallDiff
	for i := 0; i < len(expected) || i < len(actual); i++ {
		switch {
		case i >= len(expected):
			diffs = append(diffs, &CallDiff{utterance, fmt.Sprintf("unexpected call: %v", actual[i])})
		case i >= len(actual):
			diffs = append(diffs, &CallDiff{utterance, fmt.Sprintf("missing call: %v", expected[i])})
		case expected[i] != actual[i]:
			diffs = append(diffs, &CallDiff{utterance, fmt.Sprintf("expected %v but got %v", expected[i], actual[i])})
		}
	}
	return diffs
}
