package main

import (
	"os"

	"github.com/halcyon-tools/lattice/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
