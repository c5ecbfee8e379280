// Command stctl is the operator's CLI shell over a bytecode container, a
// runtime/io bundle, and a running resource's retain file, the same role
// the teacher's pedumper plays over a PE binary: one root command, a
// handful of read-only inspection subcommands, and cobra doing the flag
// and usage plumbing.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stplatform/stcore/internal/rtlog"
)

var logLevel string

func main() {
	rootCmd := &cobra.Command{
		Use:   "stctl",
		Short: "Inspect and run a Structured Text bytecode bundle",
		Long:  "stctl dumps and validates bytecode containers, inspects retain files, runs a resource against a runtime/io bundle, and analyzes a container's task metadata for semantic diagnostics.",
	}
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newDumpCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newRetainCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newAnalyzeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() rtlog.Logger {
	switch logLevel {
	case "debug":
		return rtlog.NewStdLogger(rtlog.LevelDebug)
	case "warn":
		return rtlog.NewStdLogger(rtlog.LevelWarn)
	case "error":
		return rtlog.NewStdLogger(rtlog.LevelError)
	default:
		return rtlog.NewStdLogger(rtlog.LevelInfo)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("stctl 0.1.0")
		},
	}
}
