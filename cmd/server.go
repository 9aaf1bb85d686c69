package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Melodix/config"
	"Melodix/logger"
	"Melodix/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the catalog API server",
	Long:  `Start the HTTP server that stores songs and albums and serves their media.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.Start(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
