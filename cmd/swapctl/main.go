// Command swapctl is the operator CLI for the swap match core: it runs the
// finder, inspects matches, seeds email templates and issues dev tokens.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
