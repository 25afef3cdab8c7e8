// Command automaton runs, tests and drives reactive state machines.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/automaton/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
