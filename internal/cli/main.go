// Package cli implements the frappekit command line.
package cli

import (
	"bufio"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/ambiyansyah-risyal/frappekit"
)

// Main runs the CLI with the given arguments and returns the exit code.
func Main(args []string) int {
	cliName := "frappekit"
	if len(args) > 0 {
		cliName = args[0]
	} else {
		args = []string{cliName}
	}

	log := hclog.New(&hclog.LoggerOptions{
		Name:   "frappekit",
		Output: os.Stderr,
	})

	if len(args) == 2 &&
		(args[1] == "-version" ||
			args[1] == "-v" ||
			args[1] == "--version") {
		args = []string{cliName, "version"}
	}

	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	c := &cli.CLI{
		Name:     "frappekit",
		Args:     args[1:],
		Version:  frappekit.Version,
		Commands: Commands(log, ui),
	}

	exitCode, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return 1
	}

	return exitCode
}
