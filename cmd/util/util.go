package util

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/keymux/keymux/proxy/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig initializes configuration from environment variables. Every
// flag can also be set as KEYMUX_<FLAG> (e.g. KEYMUX_LOG_LEVEL=debug).
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("keymux")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// SetupConnectionFlags adds the flags shared by all commands that connect to
// a single server.
func SetupConnectionFlags(cmd *cobra.Command) {
	key := "host"
	cmd.PersistentFlags().String(key, "localhost", WrapString("Host of the server to connect to"))

	key = "port"
	cmd.PersistentFlags().Int(key, 8080, WrapString("Port of the server to connect to"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, common.DefaultTimeoutSecond, WrapString("Timeout in seconds for a single request"))
}

// GetConnectionOptions reads the connection target from viper.
func GetConnectionOptions() (common.ConnectionOptions, error) {
	protocol, err := GetProtocol()
	if err != nil {
		return common.ConnectionOptions{}, err
	}
	return common.ConnectionOptions{
		Host:          viper.GetString("host"),
		Port:          viper.GetInt("port"),
		Protocol:      protocol,
		TimeoutSecond: viper.GetInt("timeout"),
	}, nil
}

// GetProtocol reads the configured wire protocol from viper.
func GetProtocol() (common.Protocol, error) {
	return common.ParseProtocol(viper.GetString("protocol"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
