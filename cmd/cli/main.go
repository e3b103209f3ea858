// Package main is the entry point for the blogmate CLI binary.
package main

import (
	"os"

	"blogmate/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
