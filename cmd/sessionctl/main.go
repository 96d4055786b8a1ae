// Command sessionctl is the command-line client for the design session
// engine: it can run the HTTP server or drive a session directly against
// the local state store, one design operation per invocation.
package main

import (
	"fmt"
	"os"

	"github.com/sketchloom/sessionengine/cmd/sessionctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
