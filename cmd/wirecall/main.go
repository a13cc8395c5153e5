package main

import (
	"os"

	"github.com/marmos91/wirecall/cmd/wirecall/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
