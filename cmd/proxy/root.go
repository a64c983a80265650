package proxy

import (
	"fmt"
	"os"

	"github.com/keymux/keymux/cmd/util"
	"github.com/keymux/keymux/proxy/common"
	"github.com/keymux/keymux/proxy/conn"
	"github.com/keymux/keymux/proxy/router"
	"github.com/keymux/keymux/proxy/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	proxyCmdConfig = &common.ServerConfig{}
	ProxyCmd       = &cobra.Command{
		Use:     "proxy",
		Short:   "Start the keymux proxy daemon",
		Long:    `Start the proxy daemon. The proxy accepts the same wire protocol as a backend server and forwards every request through the routing tree defined in the routing configuration file.`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// add flags
	key := "endpoint"
	ProxyCmd.PersistentFlags().String(key, "0.0.0.0:9090", util.WrapString("The address on which the proxy will listen"))

	key = "config"
	ProxyCmd.PersistentFlags().String(key, "keymux.json", util.WrapString("Path to the routing configuration file (pools and route tree as JSON)"))

	key = "timeout"
	ProxyCmd.PersistentFlags().Int64(key, 5, util.WrapString("Timeout in seconds for a single write on a connection"))

	key = "workers-per-conn"
	ProxyCmd.PersistentFlags().Int(key, 16, util.WrapString("Maximum number of concurrently processed requests per connection"))

	key = "log-level"
	ProxyCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and
// environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	proxyCmdConfig.Endpoint = viper.GetString("endpoint")
	proxyCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	proxyCmdConfig.MaxWorkersPerConn = viper.GetInt("workers-per-conn")
	proxyCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

func run(_ *cobra.Command, _ []string) error {
	common.InitLoggers(proxyCmdConfig.LogLevel)

	// Build the routing tree from the configuration file
	configPath := viper.GetString("config")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read routing configuration %s: %v", configPath, err)
	}

	routerConfig, err := router.ParseRouterConfig(data)
	if err != nil {
		return err
	}

	upstream, err := router.NewInternalConnection(configPath, routerConfig)
	if err != nil {
		return err
	}
	defer upstream.Close()

	protocol, err := util.GetProtocol()
	if err != nil {
		return err
	}

	srv, err := server.NewServer(*proxyCmdConfig, protocol)
	if err != nil {
		return err
	}

	// Every decoded request is forwarded through the routing tree; the
	// worker blocks until the combined reply is available
	srv.RegisterHandler(func(req *common.Message) *common.Message {
		return conn.SendRequestSync(upstream, req)
	})

	fmt.Println(proxyCmdConfig.String())

	if err := srv.Start(); err != nil {
		return err
	}

	// Serve until the process is stopped
	select {}
}
