package main

import (
	"os"

	"github.com/iabetor/samspeech/cmd/samspeech/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
