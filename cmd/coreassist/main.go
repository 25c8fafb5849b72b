// Package main provides the entry point for the Coreassist CLI.
package main

import (
	"fmt"
	"os"

	"github.com/coreassist/coreassist/cmd/coreassist/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
