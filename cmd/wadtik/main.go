// Command wadtik inspects, unpacks, packs and catalogs WAD packages and
// fakesigns their tickets.
package main

import (
	"fmt"
	"os"

	"github.com/eunmann/wadtik/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
