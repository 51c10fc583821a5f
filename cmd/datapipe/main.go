// Package main is the entry point for the datapipe cli.
package main

import (
	"os"

	"github.com/ivanehh/datapipe/cmd/datapipe/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
