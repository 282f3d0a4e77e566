// Command shelldu reconstructs directory sizes from recorded shell sessions.
package main

import (
	"fmt"
	"os"

	"github.com/idelchi/shelldu/internal/cli"
)

// Global variable for CI stamping.
var version = "unknown - unofficial & generated by unknown"

func main() {
	if err := cli.New(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
