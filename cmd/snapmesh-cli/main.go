// Command snapmesh-cli inspects and manages snapmesh nodes through their
// admin API, and reads snapshot recordings from disk.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/snapmesh-go/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
