package kv

import (
	"fmt"
	"strconv"

	"github.com/keymux/keymux/proxy/common"
	"github.com/keymux/keymux/proxy/conn"
	"github.com/spf13/cobra"
)

// request sends one request synchronously and converts error-coded replies
// to command errors.
func request(req *common.Message) (*common.Message, error) {
	reply := conn.SendRequestSync(client, req)
	if reply.Result.Error() {
		return nil, fmt.Errorf("%s failed (%s): %s", req.MsgType, reply.Result, reply.Err)
	}
	return reply, nil
}

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := request(common.NewSetRequest(args[0], []byte(args[1])))
			if err != nil {
				return err
			}
			fmt.Println(reply.Result)
			return nil
		},
	}
	setECmd = &cobra.Command{
		Use:   "setE [key] [value] [expireIn]",
		Short: "Sets the value for a key with an expiry in seconds",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			expireIn, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("expireIn must be a number: %w", err)
			}
			reply, err := request(common.NewSetERequest(args[0], []byte(args[1]), expireIn))
			if err != nil {
				return err
			}
			fmt.Println(reply.Result)
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := request(common.NewGetRequest(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, result=%s, value=%s\n", args[0], reply.Result, reply.Value)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := request(common.NewDeleteRequest(args[0]))
			if err != nil {
				return err
			}
			fmt.Println(reply.Result)
			return nil
		},
	}
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Checks if the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !client.HealthCheck() {
				return fmt.Errorf("server is not reachable")
			}
			fmt.Println("pong")
			return nil
		},
	}
)
