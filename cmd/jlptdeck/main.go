package main

import (
	"os"

	"github.com/japaniel/jlptdeck/pkg/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
