package main

import (
	"fmt"
	"os"

	"github.com/ricky0123/vocoder/internal/fixture"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "compile",
		Short:   "Compile a grammar fixture and report the automaton's size",
		Example: `  vocoderc compile grammar.voc`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCompile,
	}
	rootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	tc, path, err := loadTestCase(args)
	if err != nil {
		return err
	}

	compiled, err := fixture.NewGrammar(tc, &fixture.Recorder{}).Compile()
	if err != nil {
		return err
	}

	s := compiled.Soft
	choiceBranches := 0
	for _, ts := range s.ChoiceTransitions {
		choiceBranches += len(ts)
	}
	predicates := map[string]struct{}{}
	for _, t := range s.SymbolTransitions {
		if name, ok := t.Predicate.(string); ok {
			predicates[name] = struct{}{}
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "compiled %v\n", path)
	fmt.Fprintf(cmd.OutOrStdout(), "  symbol states: %v (%v distinct lexicons)\n", len(s.SymbolTransitions), len(predicates))
	fmt.Fprintf(cmd.OutOrStdout(), "  skip states:   %v\n", len(s.SkipTransitions))
	fmt.Fprintf(cmd.OutOrStdout(), "  choice states: %v (%v branches)\n", len(s.ChoiceTransitions), choiceBranches)
	return nil
}

func loadTestCase(args []string) (*fixture.TestCase, string, error) {
	if len(args) == 0 {
		tc, err := fixture.ParseTestCase(os.Stdin)
		return tc, "stdin", err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, args[0], err
	}
	defer f.Close()
	tc, err := fixture.ParseTestCase(f)
	return tc, args[0], err
}
