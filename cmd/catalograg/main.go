// Command catalograg serves the catalog retrieval pipeline over HTTP and runs
// one-shot retrievals from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/kailas-cloud/catalograg/cmd/catalograg/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
