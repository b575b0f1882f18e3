package main

import (
	"os"

	"github.com/abhisek/boki/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
