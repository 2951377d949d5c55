package main

import (
	"fmt"
	"os"

	"go.rsi.dev/reverse-ssh-interface/cmd"
)

func main() {
	if os.Getenv("RSI_ASKPASS_TOKEN") != "" {
		os.Exit(cmd.RunAskpass())
	}

	root := cmd.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
