package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	debugLogs bool
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "relay <command>",
	Short: "Real-time fan-out and push delivery for Together events",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if debugLogs {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "enable debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "workers", Title: "Workers:"},
		&cobra.Group{ID: "tools", Title: "Tools:"},
	)

	// Workers
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(dispatchCmd)

	// Tools
	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(notifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
