// Command bimbridge serves batch element operations on a BIM document to
// MCP clients.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/bimbridge/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
