// Command framesim replays scripted allocation requests against the kernel
// physical frame allocator using a memory map described in a TOML file.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"theseus/kernel/kfmt"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		configPath string
		logLevel   string
		noColor    bool
	)

	var rootCmd = &cobra.Command{
		Use:   "framesim",
		Short: "Physical frame allocator simulator",
		Long: `framesim builds the kernel area frame allocator on top of a memory map
described in a TOML file and replays the allocation script listed in it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, ok := kfmt.ParseLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}
			kfmt.SetLogLevel(level)
			kfmt.SetOutputSink(&kfmt.PrefixWriter{Sink: stderr, Prefix: []byte("kernel: ")})

			if noColor {
				color.NoColor = true
			}
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Memory map and script file (TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Kernel log level (trace, debug, info, warn, error, silent)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable coloured output")
	rootCmd.MarkPersistentFlagRequired("config")

	var mapCmd = &cobra.Command{
		Use:   "map",
		Short: "Print the memory map seen by the allocator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := setup(configPath)
			if err != nil {
				return err
			}
			defer sim.close()

			fmt.Fprint(cmd.OutOrStdout(), memoryMapTree(sim.alloc).String())
			return nil
		},
	}

	var finalMap bool
	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Replay the allocation script",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			sim, err := newSimulator(cfg)
			if err != nil {
				return err
			}
			defer sim.close()

			out := cmd.OutOrStdout()
			sum := sim.run(out, cfg.Ops)
			fmt.Fprintf(out, "allocated %d frames, released %d, failed requests: %d, frames skipped by contiguous requests: %d\n",
				sum.Allocated, sum.Freed, sum.Failed, sum.RangeWasted)

			if finalMap {
				fmt.Fprint(out, memoryMapTree(sim.alloc).String())
			}
			return nil
		},
	}
	runCmd.Flags().BoolVar(&finalMap, "map", false, "Print the memory map after the script completes")

	rootCmd.AddCommand(mapCmd, runCmd)
	return rootCmd
}

func setup(configPath string) (*simulator, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return newSimulator(cfg)
}
