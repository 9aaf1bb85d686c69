package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "melodix",
	Short: "Melodix is a small music catalog with a terminal player.",
	Long: `Melodix serves a catalog of songs and albums over HTTP and plays it
from the terminal. Run "melodix server" to start the API and
"melodix play" to open the player console.`,
	SilenceUsage: true,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
