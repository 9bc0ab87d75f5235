// Command elt runs the extract, load, transform and export pipeline once.
package main

import (
	"os"

	"duck-elt/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
