// Package main provides the entry point for the sourcekit CLI tool.
package main

import (
	"github.com/appstation/sourcekit/cmd/sourcekit/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
