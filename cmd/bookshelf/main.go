package main

import (
	"os"

	"github.com/deppfellow/bookshelf/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
