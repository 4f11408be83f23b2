package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/codepulse/internal/config"
	"github.com/dropDatabas3/codepulse/internal/http/server"
	"github.com/dropDatabas3/codepulse/internal/observability/logger"
	_ "github.com/dropDatabas3/codepulse/internal/store/adapters/dal"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath = os.Getenv("CONFIG_PATH")
		envFile = ".env"
		cfg     *config.Config
	)

	root := &cobra.Command{
		Use:           "codepulse",
		Short:         "Gateway de autenticación de CodePulse",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			c, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			cfg = c
			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: "codepulse",
				Version:     version,
			})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "ruta al YAML de config (env CONFIG_PATH)")
	root.PersistentFlags().StringVar(&envFile, "env-file", envFile, "archivo .env a cargar si existe")

	cfgFn := func() *config.Config { return cfg }
	root.AddCommand(
		serveCmd(cfgFn),
		pingStoreCmd(cfgFn),
		ensureIndexesCmd(cfgFn),
	)
	return root
}

func serveCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg())
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.L()

	app, err := server.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("close resources", logger.Err(err))
		}
	}()

	srv := server.NewHTTPServer(cfg.Server.Addr, app.Handler)
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			logger.String("addr", cfg.Server.Addr),
			logger.Driver(cfg.Storage.Driver),
			logger.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func pingStoreCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ping-store",
		Short: "Abre una conexión al store y hace ping",
		RunE: func(cmd *cobra.Command, args []string) error {
			conns, _, c, err := server.Store(cmd.Context(), cfg())
			if err != nil {
				return err
			}
			defer conns.Close()
			if c != nil {
				defer c.Close()
			}
			if err := conns.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "store %s: ok\n", cfg().Storage.Driver)
			return nil
		},
	}
}

func ensureIndexesCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Crea los índices/constraints de usuarios (idempotente)",
		RunE: func(cmd *cobra.Command, args []string) error {
			conns, users, c, err := server.Store(cmd.Context(), cfg())
			if err != nil {
				return err
			}
			defer conns.Close()
			if c != nil {
				defer c.Close()
			}
			if err := users.EnsureIndexes(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexes %s: ok\n", cfg().Storage.Driver)
			return nil
		},
	}
}
