// Command fpctl is a thin CLI wrapper around the fingerprint
// generation pipeline, matcher, and catalog I/O.
package main

import (
	"fmt"
	"os"

	"github.com/wavemark/fprint/cmd/fpctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
