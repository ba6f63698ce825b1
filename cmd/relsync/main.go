// Command relsync compiles relation declarations, generates their Go
// descriptors and runs mirror-sync scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/relsync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
