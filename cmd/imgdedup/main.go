// Command imgdedup fingerprints images and serves the duplicate intake.
package main

import (
	"context"
	"os"

	"github.com/hupe1980/imgdedup/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
