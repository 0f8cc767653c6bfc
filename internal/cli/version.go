package cli

import (
	"github.com/ambiyansyah-risyal/frappekit"
)

// VersionCommand prints the build version.
type VersionCommand struct {
	*Command
}

func (c *VersionCommand) Synopsis() string {
	return "Print the version"
}

func (c *VersionCommand) Help() string {
	return "Usage: frappekit version"
}

func (c *VersionCommand) Run(args []string) int {
	c.UI.Output(frappekit.GetVersion())
	return 0
}
