// Package main es la CLI de operación de la farmacia: migraciones, carga inicial, movimientos,
// reportes y emisión de tokens de operador.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Farmacia-api/internal/bootstrap"
	"github.com/jhoicas/Farmacia-api/pkg/config"
	"github.com/jhoicas/Farmacia-api/pkg/logger"
)

const (
	Version = "0.1.0"
	appName = "farmaciactl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags opciones comunes; sobrescriben la configuración de entorno.
type globalFlags struct {
	store     string
	sqliteDSN string
	logLevel  string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Operación del inventario de la farmacia",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.store, "store", "", "Almacén: postgres|sqlite (default STORE_DRIVER)")
	cmd.PersistentFlags().StringVar(&g.sqliteDSN, "sqlite-dsn", "", "Archivo SQLite (default SQLITE_DSN)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Nivel de log (default LOG_LEVEL)")

	cmd.AddCommand(
		migrateCmd(g),
		seedCmd(g),
		movementCmd(g),
		reportsCmd(g),
		reconcileCmd(g),
		tokenCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Muestra la versión",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

// loadConfig lee la configuración y aplica los flags globales.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if g.store != "" {
		cfg.Store.Driver = g.store
	}
	if g.sqliteDSN != "" {
		cfg.SQLite.DSN = g.sqliteDSN
	}
	if g.logLevel != "" {
		cfg.App.LogLevel = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// open arma el contenedor. Los logs van a stderr para no mezclarse con la salida JSON.
func (g *globalFlags) open(cmd *cobra.Command, migrate bool) (*bootstrap.Container, *config.Config, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		Out:   cmd.ErrOrStderr(),
		Name:  appName,
	})
	c, err := bootstrap.New(cmd.Context(), cfg, log.Zerolog(), migrate)
	if err != nil {
		return nil, nil, err
	}
	return c, cfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
