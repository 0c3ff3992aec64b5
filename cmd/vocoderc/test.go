package main

import (
	"errors"
	"fmt"

	"github.com/ricky0123/vocoder/internal/fixture"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "test",
		Short:   "Replay fixture scripts against their expected callback calls",
		Example: `  vocoderc test fixtures/`,
		Args:    cobra.MinimumNArgs(1),
		RunE:    runTest,
	}
	rootCmd.AddCommand(cmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	failed := false
	for _, arg := range args {
		for _, c := range fixture.ListTestCases(arg) {
			if c.Error != nil {
				failed = true
				fmt.Fprintf(cmd.OutOrStdout(), "Failed %v: %v\n", c.FilePath, c.Error)
				continue
			}
			diffs, err := fixture.Run(c.TestCase)
			if err != nil {
				failed = true
				fmt.Fprintf(cmd.OutOrStdout(), "Failed %v: %v\n", c.FilePath, err)
				continue
			}
			if len(diffs) > 0 {
				failed = true
				fmt.Fprintf(cmd.OutOrStdout(), "Failed %v:\n", c.FilePath)
				for _, d := range diffs {
					fmt.Fprintf(cmd.OutOrStdout(), "    %q: %v\n", d.Utterance, d.Message)
				}
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Passed %v\n", c.FilePath)
		}
	}
	if failed {
		return errors.New("test failed")
	}
	return nil
}
