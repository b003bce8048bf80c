package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "vaultd",
		Short:         "Delegated-authority vault for autonomous trading agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ./config.yaml or ./configs/config.yaml)")

	root.AddCommand(
		newServeCmd(&configPath),
		newBackendCmd(),
		newNamehashCmd(),
		newRouteIDCmd(),
		newUserCmd(&configPath),
	)
	return root
}
