package main

import (
	"os"

	"github.com/ambiyansyah-risyal/frappekit/internal/cli"
)

func main() {
	os.Exit(cli.Main(os.Args))
}
