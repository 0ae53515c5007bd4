package main

import (
	"os"

	"github.com/moolen/medidesk/cmd/medidesk/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
