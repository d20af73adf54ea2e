// Command loadout composes agent configuration documents from a catalog
// and manages saved snapshots of them.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/loadout/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Command failures are already written by the output formatter;
		// anything else is a usage error from flag or argument parsing.
		if !cli.IsExitError(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(cli.ExitCommandError)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
