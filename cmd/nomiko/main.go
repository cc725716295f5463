package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nomiko",
	Short: "Contract risk analysis from the terminal",
	Long: `nomiko segments a contract into clauses, flags the risky ones and
answers questions about it, using the same analysis pipeline as the server.

Configuration is read from the environment and .env (GEMINI_API_KEY,
GEMINI_MODEL, LLM_TIMEOUT, LOG_LEVEL, ...).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
