// Command kanstore edits the task board, person and wedding stores and
// serves their storage.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/kanstore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}
