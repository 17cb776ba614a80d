// Command floatransctl controls a running floatrans window and manages its
// settings from the command line.
package main

import (
	"fmt"
	"os"
)

func main() {
	setConsoleUTF8()
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "floatransctl:", err)
		os.Exit(1)
	}
}
