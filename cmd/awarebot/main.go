package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:     "awarebot",
	Short:   "A self-aware chatbot that logs its failures and learns from them",
	Version: version,
	Long: `awarebot runs a persona-driven chatbot backed by a hosted model.
Every failed interaction (API errors, safety blocks, refusals, low
confidence) is classified and logged; recurring failures can be analyzed
and corrected responses learned into a local knowledge base.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(knowledgeCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
