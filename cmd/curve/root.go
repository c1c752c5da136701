package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"curvelaboratory/promptgateway/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "curve",
	Short: "Curve - prompt gateway for LLM applications",
	Long: `Curve is an edge gateway that sits between clients and an
OpenAI-compatible LLM.

For every chat completion it can:
  - Block jailbreak attempts before they reach the model
  - Route prompts to configured targets by similarity or intent
  - Turn prompts into developer API calls via function calling
  - Forward the enriched conversation to the LLM`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
