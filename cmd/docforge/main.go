package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/docforge/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	err := cmd.Execute()
	if err == nil {
		return
	}

	// Commands print their own responses; flag and argument errors from
	// cobra reach here unreported.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(exitErr.Code)
}
