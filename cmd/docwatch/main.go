// Command docwatch submits PDF documents to the extraction service and
// follows the analysis as it streams back.
package main

import (
	"os"

	"docwatch/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
