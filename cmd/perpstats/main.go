package main

import (
	"os"

	"github.com/perpstats/perpstats/cmd/perpstats/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
