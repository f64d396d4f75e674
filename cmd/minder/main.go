package main

import (
	"fmt"
	"os"

	"github.com/eldris/minder/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if err.Error() != "" {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}
