// cmd/client is the CLI entry-point built with Cobra, talking to one
// replica's client_api endpoint.
//
// Usage:
//
//	kvcli set mykey 7   --server localhost:5012
//	kvcli get mykey      --server localhost:5012
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"consistentkv/internal/client"
)

var (
	serverAddr string
	timeout    time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "kvcli",
		Short: "CLI client for the replicated KV store",
	}

	root.PersistentFlags().StringVarP(&serverAddr, "server", "s",
		"localhost:5012", "Replica client_api address (host:port)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"Request timeout")

	root.AddCommand(setCmd(), getCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a key to an integer value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("value must be an integer: %w", err)
			}
			c := client.New(serverAddr, timeout)
			reply, err := c.Set(context.Background(), args[0], value)
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a key's value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			reply, err := c.Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		},
	}
}
