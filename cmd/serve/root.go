package serve

import (
	"fmt"

	"github.com/keymux/keymux/cmd/util"
	"github.com/keymux/keymux/lib/cache"
	"github.com/keymux/keymux/proxy/common"
	"github.com/keymux/keymux/proxy/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start a keymux backend cache server",
		Long:    `Start a backend cache server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is KEYMUX_<flag> (e.g. KEYMUX_LOG_LEVEL=debug)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", util.WrapString("The address on which the server will listen"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, util.WrapString("Timeout in seconds for a single write on a connection"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 16, util.WrapString("Maximum number of concurrently processed requests per connection"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and
// environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.MaxWorkersPerConn = viper.GetInt("workers-per-conn")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

func run(_ *cobra.Command, _ []string) error {
	common.InitLoggers(serveCmdConfig.LogLevel)

	protocol, err := util.GetProtocol()
	if err != nil {
		return err
	}

	srv, err := server.NewServer(*serveCmdConfig, protocol)
	if err != nil {
		return err
	}
	srv.RegisterHandler(server.NewCacheHandler(cache.NewCache()))

	fmt.Println(serveCmdConfig.String())

	if err := srv.Start(); err != nil {
		return err
	}

	// Serve until the process is stopped
	select {}
}
