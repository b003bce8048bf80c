package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/xela07ax/agentvault/internal/console/service"
	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/infra"
	"github.com/xela07ax/agentvault/internal/repository/postgres"
)

func newUserCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage console operators",
	}

	var (
		u      domain.User
		pass   string
		scopes []string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an operator account in postgres",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := infra.LoadConfigFrom(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("database.url is required")
			}
			if !common.IsHexAddress(u.Address) {
				return fmt.Errorf("malformed address %q", u.Address)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			repo, err := postgres.New(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer repo.Close()

			if u.PasswordHash, err = service.HashPassword(pass, cfg.Auth.BcryptCost); err != nil {
				return err
			}
			u.Address = common.HexToAddress(u.Address).Hex()
			u.Scopes = make(map[string]bool, len(scopes))
			for _, s := range scopes {
				u.Scopes[s] = true
			}
			if err := repo.CreateUser(ctx, &u); err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", u.Username, u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&u.Username, "username", "", "login name")
	add.Flags().StringVar(&u.Email, "email", "", "contact email")
	add.Flags().StringVar(&u.Address, "address", "", "on-ledger address the operator acts as")
	add.Flags().StringVar(&u.Role, "role", "operator", "display role")
	add.Flags().StringVar(&pass, "password", "", "password")
	add.Flags().StringSliceVar(&scopes, "scope", []string{domain.ScopeOperator}, "token scopes (owner, operator, agent)")
	_ = add.MarkFlagRequired("username")
	_ = add.MarkFlagRequired("password")
	_ = add.MarkFlagRequired("address")

	cmd.AddCommand(add)
	return cmd
}
