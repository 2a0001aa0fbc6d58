// Package main provides the entry point for the smackdown CLI tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/smackdown/cmd/smackdown/commands"
	"github.com/Sumatoshi-tech/smackdown/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := commands.NewRootCommand().Execute()
	if err != nil {
		// The rendered report already explains an uncovered diff.
		if !errors.Is(err, commands.ErrNotCovered) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}

		os.Exit(commands.ExitCode(err))
	}
}
