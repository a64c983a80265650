package kv

import (
	"github.com/keymux/keymux/cmd/util"
	"github.com/keymux/keymux/proxy/conn"
	"github.com/spf13/cobra"
)

var (
	client conn.Connection

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value operations against a server or proxy",
		PersistentPreRunE: setupClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common connection flags to the KV command
	util.SetupConnectionFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(setECmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(pingCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupClient creates the connection used by all subcommands. A proxy and a
// backend server speak the same protocol, so the target may be either.
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	opts, err := util.GetConnectionOptions()
	if err != nil {
		return err
	}

	client, err = conn.NewExternalConnection(opts)
	return err
}
