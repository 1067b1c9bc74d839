// Command robolake converts robot recordings and queries the resulting catalog.
package main

import (
	"fmt"
	"os"

	"github.com/hugr-lab/robolake/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
