package main

import (
	"fmt"
	"os"

	"mizu/cmd/mizu/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
