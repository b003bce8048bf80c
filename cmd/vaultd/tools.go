package main

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/identity"
	"github.com/xela07ax/agentvault/internal/routes"
)

func newNamehashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "namehash <name>",
		Short: "Print the ENS namehash used as an agent identity binding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), identity.Namehash(args[0]).Hex())
			return nil
		},
	}
}

func newRouteIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route-id <asset0> <asset1> <fee> <pool>",
		Short: "Print the content-derived id of a swap route",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, a := range []string{args[0], args[1], args[3]} {
				if !common.IsHexAddress(a) {
					return fmt.Errorf("malformed address %q", a)
				}
			}
			fee, err := strconv.ParseUint(args[2], 10, 32)
			if err != nil || fee > domain.MaxFee {
				return fmt.Errorf("fee must be an integer up to %d", domain.MaxFee)
			}
			id := routes.ComputeID(
				common.HexToAddress(args[0]),
				common.HexToAddress(args[1]),
				uint32(fee),
				common.HexToAddress(args[3]),
			)
			fmt.Fprintln(cmd.OutOrStdout(), id.Hex())
			return nil
		},
	}
}
