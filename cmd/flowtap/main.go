package main

import (
	"os"

	"github.com/flowtap/flowtap/cmd/flowtap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
