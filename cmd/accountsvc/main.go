package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/app"
	"github.com/you/accountsvc/internal/config"
	"github.com/you/accountsvc/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "accountsvc",
		Short:        "Account registration, login and password recovery service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the YAML config file")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		logger.Init(cfg.LogLevel, cfg.LogFormat)
		return cfg, nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return app.Run(cfg)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create tables and seed the default access policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return app.Migrate(cmd.Context(), cfg)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Verify the database, redis and policy store are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return app.Check(cmd.Context(), cfg)
		},
	})

	root.AddCommand(newCreateAccountCmd(load))
	return root
}

// newCreateAccountCmd registers an already verified account, typically the first admin
func newCreateAccountCmd(load func() (*config.Config, error)) *cobra.Command {
	var input domain.RegisterInput

	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Create a verified account without sending a verification message",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			c, err := app.NewContainer(cmd.Context(), cfg, logger.L)
			if err != nil {
				return err
			}
			defer c.Close()

			account, err := c.AccountSvc.Register(cmd.Context(), input, domain.TrustVerified)
			if err != nil {
				return err
			}
			logger.L.Info("account created",
				slog.String("id", account.ID),
				slog.String("username", account.Username),
				slog.String("role", account.Role))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&input.Username, "username", "", "unique username")
	f.StringVar(&input.Email, "email", "", "unique email address")
	f.StringVar(&input.PhoneNumber, "phone", "", "unique phone number")
	f.StringVar(&input.Password, "password", "", "initial password")
	f.StringVar(&input.Role, "role", domain.RoleUser, "role name without the role_ prefix")
	for _, name := range []string{"username", "email", "phone", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
