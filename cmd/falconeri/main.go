// Package main is the entry point for the falconeri CLI.
package main

import (
	"os"

	"falconeri/cmd/falconeri/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
