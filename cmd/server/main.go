package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kvserver/internal/api"
	"kvserver/internal/config"
	"kvserver/internal/server"
	"kvserver/internal/usecase"
	"kvserver/internal/usecase/aof"
	"kvserver/internal/usecase/storage"
)

var (
	configFile string
	envFile    = ".env"
	overrides  = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "kvserver",
	Short: "Key-value server speaking RESP and HTTP",
	RunE:  run,
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	flags := rootCmd.Flags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flags.StringVar(&envFile, "env-file", envFile, "Path to a .env file, ignored if missing")
	flags.StringVar(&overrides.RespAddr, "resp-addr", overrides.RespAddr, "RESP listen address, empty to disable")
	flags.StringVar(&overrides.HTTPAddr, "http-addr", overrides.HTTPAddr, "HTTP listen address, empty to disable")
	flags.StringVar(&overrides.Backend, "backend", overrides.Backend, "Storage backend: memory or sqlite")
	flags.StringVar(&overrides.SQLitePath, "sqlite-path", overrides.SQLitePath, "SQLite database file")
	flags.StringVar(&overrides.AofPath, "aof", overrides.AofPath, "Append-only file, empty to disable")
	flags.DurationVar(&overrides.IdleTimeout, "idle-timeout", overrides.IdleTimeout, "Close RESP connections idle for this long, 0 to disable")
	flags.StringVar(&overrides.LogLevel, "log-level", overrides.LogLevel, "Log level: debug, info, warn, error")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return config.Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg, err := config.CreateConfig(configFile)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("resp-addr") {
		cfg.RespAddr = overrides.RespAddr
	}
	if flags.Changed("http-addr") {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if flags.Changed("backend") {
		cfg.Backend = overrides.Backend
	}
	if flags.Changed("sqlite-path") {
		cfg.SQLitePath = overrides.SQLitePath
	}
	if flags.Changed("aof") {
		cfg.AofPath = overrides.AofPath
	}
	if flags.Changed("idle-timeout") {
		cfg.IdleTimeout = overrides.IdleTimeout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = overrides.LogLevel
	}

	return cfg, cfg.Validate()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = lvl

	return zapCfg.Build()
}

func openStorage(cfg config.Config, logger *zap.Logger) (storage.Storage, error) {
	var store storage.Storage
	switch strings.ToLower(cfg.Backend) {
	case config.BackendSQLite:
		s, err := storage.NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		store = storage.NewMemoryStorage()
	}

	if cfg.AofPath == "" {
		return store, nil
	}

	a, err := aof.Open(cfg.AofPath, store, logger.Named("aof"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open AOF: %w", err)
	}
	return a, nil
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := openStorage(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", zap.Error(err))
		}
	}()

	logger.Info("Storage ready", zap.String("backend", cfg.Backend), zap.String("aof", cfg.AofPath))

	service := usecase.NewService(store, usecase.WithLogger(logger.Named("service")))

	group, ctx := errgroup.WithContext(cmd.Context())

	if cfg.RespAddr != "" {
		srv := server.NewServer(server.Config{Addr: cfg.RespAddr, IdleTimeout: cfg.IdleTimeout}, service, logger)
		if err := srv.Start(); err != nil {
			return err
		}
		group.Go(func() error {
			<-ctx.Done()
			srv.Stop()
			return nil
		})
	}

	if cfg.HTTPAddr != "" {
		httpSrv := api.NewServer(cfg.HTTPAddr, service, logger)
		group.Go(func() error {
			return httpSrv.Run(ctx)
		})
	}

	err = group.Wait()
	logger.Info("Shutting down")
	return err
}
