// Package main provides the CLI for the leapbind SQL expression binder.
package main

import (
	"os"

	"github.com/leapstack-labs/leapbind/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
