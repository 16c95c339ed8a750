// Package main is the gridctl command line tool.
package main

import (
	"fmt"
	"os"

	"datagrid/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
