package main

import (
	"os"

	"github.com/hospitalhub/accessgate/cmd/accessctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
