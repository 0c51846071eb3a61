package main

import (
	"fmt"
	"os"

	"github.com/fedsql/fedsql/cli"
)

func main() {
	if err := cli.Root.ExecRoot(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
