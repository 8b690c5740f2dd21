package main

import (
	"os"

	"github.com/ocuroot/ud/client/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
