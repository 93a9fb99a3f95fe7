package main

import (
	"fmt"
	"os"

	"nutriplan/cmd/nutriplanctl/commands"
	"nutriplan/internal/pkg/common"
)

func main() {
	err := commands.NewRootCommand().Execute()
	common.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
