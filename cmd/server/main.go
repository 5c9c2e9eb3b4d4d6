package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trvo-dev/quizhub-server/internal/app"
	"github.com/trvo-dev/quizhub-server/internal/config"
	"github.com/trvo-dev/quizhub-server/internal/log"
)

var (
	flagConfigPath string
	flagAddr       string
	flagDBPath     string
	flagLogLevel   string
	flagLogPretty  bool
)

var rootCmd = &cobra.Command{
	Use:   "quizhub-server",
	Short: "Quiz platform chat and presence server",
	Long:  "Serves the community chat, quiz discussion rooms, and presence over WebSocket with a REST API for history and discussion management.",
	RunE:  runServer,
}

func init() {
	rootCmd.Flags().StringVarP(&flagConfigPath, "config", "c", "", "path to config file")
	rootCmd.Flags().StringVar(&flagAddr, "addr", "", "HTTP listen address (overrides config)")
	rootCmd.Flags().StringVar(&flagDBPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.Flags().BoolVar(&flagLogPretty, "log-pretty", false, "human-readable log output")
}

func runServer(cmd *cobra.Command, args []string) error {
	bootLog := log.New("info", flagLogPretty)

	cfg, configPath, err := config.Load(bootLog, flagConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if flagAddr != "" {
		cfg.Addr = flagAddr
	}
	if flagDBPath != "" {
		cfg.DatabasePath = flagDBPath
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogPretty {
		cfg.LogPretty = true
	}

	logger := log.New(cfg.LogLevel, cfg.LogPretty)
	logger.Info().Str("config", configPath).Str("addr", cfg.Addr).Msg("starting quizhub server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
