package main

import (
	"os"

	"github.com/spigell/fit-check/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
