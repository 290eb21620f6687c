package main

import (
	"os"

	"github.com/crucial707/cashcard/cmd/cli/auth"
	"github.com/crucial707/cashcard/cmd/cli/cards"
	"github.com/crucial707/cashcard/cmd/cli/root"
)

func main() {
	rootCmd := root.GetRoot()
	auth.InitAuth(rootCmd)
	cards.InitCards(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
