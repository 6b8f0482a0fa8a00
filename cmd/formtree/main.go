// Command formtree inspects rule strings, runs form scenarios and reads
// the validation journal.
//
// Usage:
//
//	formtree rules 'required|minLength(3)'
//	formtree validators --prefix min
//	formtree run ./scenarios --journal ./formtree.db
//	formtree trace --db ./formtree.db --session signup
package main

import (
	"fmt"
	"os"

	"github.com/roach88/formtree/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
