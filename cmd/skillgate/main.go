package main

import (
	"os"

	"github.com/skillgate/skillgate/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
