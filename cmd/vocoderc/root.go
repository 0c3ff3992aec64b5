package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vocoderc",
	Short: "Compile and test vocoder grammar fixtures",
	Long: `vocoderc works with grammar fixture files (see internal/fixture for
the format): it compiles the grammar they declare, describes the
resulting automaton, and replays their utterance scripts against the
recorded callback expectations.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	return rootCmd.Execute()
}
