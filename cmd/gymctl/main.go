// Command gymctl maintains a gym store from the command line: legacy
// migration, separation audits, backups and restores.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
