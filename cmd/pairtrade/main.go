package main

import (
	"os"

	"github.com/rustyeddy/pairtrade/cmd/pairtrade/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
