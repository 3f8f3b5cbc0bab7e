package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arbory/colloquy/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a workflow definition for consistency",
	Long:  `Parses the definition and compiles it, reporting structural problems and unresolved handler or router references.`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		if len(args) > 0 {
			file = args[0]
		}

		if err := cli.Validate(file); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Definition is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
