package cmd

import (
	"fmt"
	"os"

	"github.com/keymux/keymux/cmd/kv"
	"github.com/keymux/keymux/cmd/proxy"
	"github.com/keymux/keymux/cmd/serve"
	"github.com/keymux/keymux/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "keymux",
		Short: "replicating key-value cache proxy",
		Long: fmt.Sprintf(`keymux (v%s)

A key-value cache proxy written in Go. Requests are dispatched through a
configurable routing tree over pools of backend servers, with per-key
replication for hot keys.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of keymux",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("keymux v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(proxy.ProxyCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "protocol"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("wire protocol to use (binary, json, gob)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
