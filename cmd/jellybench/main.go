package main

import (
	"fmt"
	"os"

	"github.com/BotBlake/jellybench/cmd/jellybench/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
