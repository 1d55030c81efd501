// Package main provides the entry point for the gr2fbx CLI tool.
// It delegates execution to the cmd package.
package main

import (
	"gr2fbx/cmd"
)

func main() {
	cmd.Execute()
}
