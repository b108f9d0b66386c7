// Package main is the entry point for the krai application.
package main

import (
	"os"

	"github.com/krai/engine/cmd/krai/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
