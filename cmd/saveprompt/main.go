package main

import (
	"fmt"
	"os"

	"github.com/benvon/saveprompt/cmd/saveprompt/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "saveprompt",
		Short: "Ask whether to save form-fill data",
		Long:  "Shows an autofill save prompt on the terminal and reports the decision",
	}

	rootCmd.AddCommand(commands.NewShowCmd())
	rootCmd.AddCommand(commands.NewCatalogCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
