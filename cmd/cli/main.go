// Package main is the entry point for the duckgroup CLI binary.
package main

import (
	"os"

	cli "duck-grouper/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
