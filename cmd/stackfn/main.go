package main

import (
	"fmt"
	"os"

	"github.com/stackfn-io/stackfn/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
