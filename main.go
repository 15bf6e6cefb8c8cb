package main

import (
	"os"

	"github.com/examdeck/examdeck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
