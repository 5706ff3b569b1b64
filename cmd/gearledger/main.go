package main

import (
	"os"

	"github.com/clubware/gearledger/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
