// Command reclaim benchmarks object pools under a frame-loop workload.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/reclaim/pkg/logger"
)

var version = "0.1.0"

func main() {
	err := newRootCmd().Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type logFlags struct {
	level  string
	format string
}

func newRootCmd() *cobra.Command {
	var logs logFlags
	root := &cobra.Command{
		Use:   "reclaim",
		Short: "reclaim - object pool benchmarks",
		Long: `reclaim drives stack, fixed and tiered object pools with a simulated frame
loop and reports reuse, allocations and frame latency.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{
				Level:       logs.level,
				Encoding:    logs.format,
				OutputPaths: []string{"stderr"},
			})
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&logs.level, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.StringVar(&logs.format, "log-format", "console", "Log encoding (console, json)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "reclaim v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(newBenchCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newCompressCmd())
	return root
}
