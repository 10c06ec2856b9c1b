// Package main is the entry point for the assay CLI.
package main

import "assay.dev/pkg/assay/cmd"

func main() {
	cmd.Execute()
}
