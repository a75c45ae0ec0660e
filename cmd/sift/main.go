// Command sift screens resumes against a job description from the terminal
// and manages the service database.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sift",
		Short:         "Candidate screening pipeline",
		Long:          "sift extracts a profile from each resume, analyzes the job requirements, matches the two and recommends whether to interview.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newScreenCmd(), newMigrateCmd())
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
