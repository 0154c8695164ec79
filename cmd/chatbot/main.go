package main

import (
	"os"

	"github.com/pterm/pterm"

	"cattle-chatbot/cmd/chatbot/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
