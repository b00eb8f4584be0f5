package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/helixlearn/helix/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands that already rendered the error return an ExitError
		// with an empty message; don't print those twice.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Message != "" {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
