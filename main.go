package main

import (
	"os"

	"github.com/filebutler-io/filebutler/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
