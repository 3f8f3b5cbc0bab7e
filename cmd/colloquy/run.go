package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arbory/colloquy/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive conversation",
	Long:  `Starts a terminal session against a compiled workflow. Sessions persist between runs when --session is given.`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		sessionID, _ := cmd.Flags().GetString("session")
		redisURL, _ := cmd.Flags().GetString("redis")
		debug, _ := cmd.Flags().GetBool("debug")

		opts := cli.RunOptions{
			DefinitionPath: file,
			SessionID:      sessionID,
			RedisURL:       redisURL,
			Debug:          debug,
		}
		if err := cli.RunSession(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("session", "", "Session ID to resume or create")
	runCmd.Flags().String("redis", "", "Redis address for session persistence (host:port)")
	runCmd.Flags().Bool("debug", false, "Enable debug logging")

	// Running with no subcommand starts a session.
	rootCmd.Run = runCmd.Run
}
