// logdoctor diagnoses time-tracker client problems from their logs.
package main

import (
	"os"

	"github.com/ccollicutt/logdoctor/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
