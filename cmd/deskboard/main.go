// Command deskboard is the command-line client for the project and staff
// dashboard backend.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/deskboard/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
