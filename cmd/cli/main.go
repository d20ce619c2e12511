// Package main is the entry point for the lightdash CLI binary.
package main

import (
	"os"

	cli "lightdash-go/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
