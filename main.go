package main

import (
	"fmt"
	"os"

	"github.com/deskware/win_scripts/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the win_scripts command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
