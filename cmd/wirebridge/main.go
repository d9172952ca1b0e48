package main

import (
	"os"

	"github.com/wirecraft-dev/wirebridge/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
