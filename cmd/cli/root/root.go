package root

import (
	"github.com/spf13/cobra"
)

// RootCmd is the cashcard command. Subcommands are attached by main.
var RootCmd = &cobra.Command{
	Use:           "cashcard",
	Short:         "Cash Card CLI",
	Long:          "Command line interface for the Cash Card API. Set CASHCARD_API_URL to point at a server.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func GetRoot() *cobra.Command {
	return RootCmd
}
