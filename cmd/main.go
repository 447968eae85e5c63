package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	rootCmd = &cobra.Command{
		Use:   "loopz",
		Short: "Cooperative event loop demos",
		Long: `loopz is a CLI tool for exploring the loopz cooperative event loop
through small runnable demonstrations.

Each demo schedules a handful of tasks on a real scheduler and narrates
what the loop does with them: timed wakeups, races with cascaded
cancellation, and channel rendezvous.`,
		Version: version,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available demos",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println("Available demos:")
		fmt.Println()
		for _, d := range demos {
			fmt.Printf("  %-10s %s\n", d.name, d.description)
		}
		fmt.Println()
		fmt.Println("Run with: loopz demo <name>")
	},
}
