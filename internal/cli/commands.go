package cli

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
)

// Commands returns the command factories of the CLI.
func Commands(log hclog.Logger, ui cli.Ui) map[string]cli.CommandFactory {
	b := func() *Command {
		return &Command{Log: log, UI: ui}
	}

	return map[string]cli.CommandFactory{
		"get": func() (cli.Command, error) {
			return &GetCommand{Command: b()}, nil
		},
		"list": func() (cli.Command, error) {
			return &ListCommand{Command: b()}, nil
		},
		"count": func() (cli.Command, error) {
			return &CountCommand{Command: b()}, nil
		},
		"call": func() (cli.Command, error) {
			return &CallCommand{Command: b()}, nil
		},
		"search": func() (cli.Command, error) {
			return &SearchCommand{Command: b()}, nil
		},
		"upload": func() (cli.Command, error) {
			return &UploadCommand{Command: b()}, nil
		},
		"whoami": func() (cli.Command, error) {
			return &WhoamiCommand{Command: b()}, nil
		},
		"serve": func() (cli.Command, error) {
			return &ServeCommand{Command: b()}, nil
		},
		"version": func() (cli.Command, error) {
			return &VersionCommand{Command: b()}, nil
		},
	}
}
