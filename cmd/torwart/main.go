// Command torwart runs the authorization companion service consulted by a
// reverse proxy via auth subrequests, and offers subcommands to manage the
// persisted credential store.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
