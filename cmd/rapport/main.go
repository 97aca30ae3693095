package main

import (
	"os"

	"github.com/tinware/rapport/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
