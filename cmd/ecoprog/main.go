package main

import (
	"fmt"
	"os"

	"github.com/example/ecoprog/internal/cli"
	"github.com/example/ecoprog/internal/version"
)

func main() {
	if err := cli.Execute(version.String()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
