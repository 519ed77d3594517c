// Command procctl spawns a command, waits for it, and prints its
// formatted exit status — a small end-to-end demonstration of the
// subprocess package.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/spf13/cobra"

	"github.com/riftlabs/subprocess"
)

func main() {
	var convertHighExit bool

	root := &cobra.Command{
		Use:   "procctl -- <command> [args...]",
		Short: "Spawn a command and report its exit status",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := colorable.NewColorableStdout()

			p, err := subprocess.Spawn(args, &subprocess.Options{})
			if err != nil {
				return err
			}

			status, err := p.Wait()
			if err != nil {
				return err
			}

			msg, err := subprocess.FormatStatus(status, convertHighExit)
			if err != nil {
				return err
			}

			const (
				green = "\033[32m"
				red   = "\033[31m"
				reset = "\033[0m"
			)
			color := green
			if !status.Success() {
				color = red
			}
			fmt.Fprintf(out, "%s%s: %s%s\n", color, args[0], msg, reset)

			if status.Exited() && status.ExitCode() != 0 {
				os.Exit(status.ExitCode())
			}
			return nil
		},
	}

	root.Flags().BoolVar(&convertHighExit, "convert-high-exit", true,
		"guess the originating signal for exit codes above 128")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
