// ABOUTME: Entry point for the dab-tps CLI
// ABOUTME: Command-line tool for table generation and single-point optimization

package main

import (
	"fmt"
	"os"

	"github.com/dablab/dab-tps-analyzer/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
