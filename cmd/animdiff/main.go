// Command animdiff compiles scripted scene animations into frame-indexed
// JSON patches.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/animdiff/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
