// Package main is the entry point for the apishape CLI tool.
package main

import (
	"github.com/hargabyte/apishape/internal/cmd"
)

func main() {
	cmd.Execute()
}
