package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/socialgate/internal/config"
	"github.com/dropDatabas3/socialgate/internal/domain/repository"
	"github.com/dropDatabas3/socialgate/internal/jwt"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
	"github.com/dropDatabas3/socialgate/internal/security/secretbox"
	"github.com/dropDatabas3/socialgate/internal/social"
	"github.com/dropDatabas3/socialgate/internal/social/providers/apple"
	"github.com/dropDatabas3/socialgate/internal/store"
	"github.com/dropDatabas3/socialgate/internal/store/pg"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "socialctl",
		Short:        "Operaciones del servicio de login social",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "ruta al config YAML (vacío: solo env)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "socialctl"})
		return cfg, nil
	}

	root.AddCommand(newMigrateCmd(load), newSessionsCmd(load), newAccountsCmd(load), newAppleCmd(load), newSecretCmd())
	return root
}

type loader func() (*config.Config, error)

func postgresDSN(cfg *config.Config) (string, error) {
	if cfg.Storage.Driver != "postgres" {
		return "", fmt.Errorf("storage.driver es %q; las migraciones requieren postgres", cfg.Storage.Driver)
	}
	return cfg.Storage.DSN, nil
}

func newMigrateCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Migraciones de esquema (postgres)"}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Aplica todas las migraciones pendientes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			dsn, err := postgresDSN(cfg)
			if err != nil {
				return err
			}
			if err := pg.MigrateUp(dsn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revierte N migraciones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			dsn, err := postgresDSN(cfg)
			if err != nil {
				return err
			}
			return pg.MigrateDown(dsn, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "cantidad de migraciones a revertir")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Muestra la versión actual del esquema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			dsn, err := postgresDSN(cfg)
			if err != nil {
				return err
			}
			v, dirty, err := pg.Version(dsn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
			return nil
		},
	})
	return cmd
}

func newSessionsCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{Use: "sessions", Short: "Mantenimiento de sesiones"}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Borra las sesiones expiradas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			st, err := store.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			n, err := social.NewSessionIssuer(st.Sessions, cfg.Auth.Session.TTL, nil).Purge(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired sessions\n", n)
			return nil
		},
	})
	return cmd
}

func newAccountsCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{Use: "accounts", Short: "Consulta de cuentas"}

	var id, email string
	show := &cobra.Command{
		Use:   "show",
		Short: "Muestra una cuenta por --id o --email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (id == "") == (email == "") {
				return errors.New("indicar exactamente uno de --id o --email")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, err := store.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			var acc *repository.Account
			if id != "" {
				acc, err = st.Accounts.GetByID(ctx, id)
			} else {
				acc, err = st.Accounts.FindByEmail(ctx, strings.TrimSpace(email))
			}
			if repository.IsNotFound(err) {
				return errors.New("account not found")
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(acc)
		},
	}
	show.Flags().StringVar(&id, "id", "", "id de la cuenta")
	show.Flags().StringVar(&email, "email", "", "email exacto")
	cmd.AddCommand(show)
	return cmd
}

func newAppleCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{Use: "apple", Short: "Utilidades de Sign in with Apple"}
	cmd.AddCommand(&cobra.Command{
		Use:   "assertion",
		Short: "Imprime una client assertion (client_secret) ES256 para depurar el token endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			a := cfg.Providers.Apple
			key, err := jwt.ParseECPrivateKey(a.PrivateKey)
			if err != nil {
				return fmt.Errorf("apple private key: %w", err)
			}
			tok, err := apple.ClientAssertion(a.TeamID, a.ClientID, a.KeyID, key, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	})
	return cmd
}

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "secret", Short: "Secretos cifrados para la config"}
	cmd.AddCommand(&cobra.Command{
		Use:   "encrypt [value]",
		Short: "Cifra un valor con SECRETBOX_MASTER_KEY (sin argumento lee stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			box, err := secretbox.FromEnv()
			if err != nil {
				return err
			}
			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				plain = strings.TrimRight(string(b), "\r\n")
			}
			sealed, err := box.Seal(plain)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "enc:"+sealed)
			return nil
		},
	})
	return cmd
}
