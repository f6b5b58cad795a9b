// Package parleycmder is the root of the parley command tree.
package parleycmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/parley/cmd/parley/chat"
	configcmder "github.com/papercomputeco/parley/cmd/parley/config"
	historycmder "github.com/papercomputeco/parley/cmd/parley/history"
	servecmder "github.com/papercomputeco/parley/cmd/parley/serve"
	versioncmder "github.com/papercomputeco/parley/cmd/version"
)

const parleyLongDesc string = `parley is a conversational proxy. It keeps a transcript per session,
forwards it to a text generation model and records every exchange.

Run the server and talk to it using:
  parley serve                Run the API server
  parley chat                 Chat with a running server
  parley history <id>         Show the recorded snapshots of a conversation`

const parleyShortDesc string = "parley - conversational proxy"

func NewParleyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "parley",
		Short:         parleyShortDesc,
		Long:          parleyLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .parley/ directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
