package main

import (
	"fmt"
	"sort"

	"github.com/ricky0123/vocoder/internal/fixture"
	"github.com/ricky0123/vocoder/soft"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "describe",
		Short:   "Print every state and transition of a compiled grammar",
		Example: `  vocoderc describe grammar.voc`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runDescribe,
	}
	rootCmd.AddCommand(cmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	tc, _, err := loadTestCase(args)
	if err != nil {
		return err
	}

	compiled, err := fixture.NewGrammar(tc, &fixture.Recorder{}).Compile()
	if err != nil {
		return err
	}
	s := compiled.Soft

	states := map[int]struct{}{s.Initial: {}}
	note := func(src, tgt int) {
		states[src] = struct{}{}
		states[tgt] = struct{}{}
	}
	for _, t := range s.SkipTransitions {
		note(t.Source, t.Target)
	}
	for _, t := range s.SymbolTransitions {
		note(t.Source, t.Target)
	}
	for _, ts := range s.ChoiceTransitions {
		for _, t := range ts {
			note(t.Source, t.Target)
		}
	}
	ordered := make([]int, 0, len(states))
	for st := range states {
		ordered = append(ordered, st)
	}
	sort.Ints(ordered)

	for _, st := range ordered {
		switch s.StateType(st) {
		case soft.StateSkip:
			t := s.SkipTransitions[st]
			fmt.Fprintf(cmd.OutOrStdout(), "%5d skip   -> %d%v\n", st, t.Target, describeOutput(t.Output))
		case soft.StateSymbol:
			t := s.SymbolTransitions[st]
			fmt.Fprintf(cmd.OutOrStdout(), "%5d symbol %v -> %d%v\n", st, describePredicate(t.Predicate), t.Target, describeOutput(t.Output))
		case soft.StateChoice:
			for _, t := range s.ChoiceTransitions[st] {
				fmt.Fprintf(cmd.OutOrStdout(), "%5d choice #%d -> %d%v\n", st, t.Cost, t.Target, describeOutput(t.Output))
			}
		case soft.StateFinal:
			fmt.Fprintf(cmd.OutOrStdout(), "%5d final\n", st)
		}
	}
	return nil
}

func describePredicate(p soft.Predicate) string {
	if name, ok := p.(string); ok {
		return ":" + name
	}
	return "<batch separator>"
}

func describeOutput(o soft.Output) string {
	if o == nil {
		return ""
	}
	return " !"
}
