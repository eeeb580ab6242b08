// Package main provides the entry point for the kasane CLI.
package main

import (
	"os"

	"github.com/kasane-search/kasane/cmd/kasane/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
