package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/fit-check/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "listen address (default :8080)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := setup(ctx, logger)
	if err != nil {
		logger.Fatal("starting the application", zap.Error(err))
	}
	defer application.Close()

	logger.Info("starting the fit-check server", zap.String("version", version))

	secret, err := jwtSecret(application.config.Auth)
	if err != nil {
		logger.Fatal("loading jwt secret", zap.Error(err))
	}

	var ttl time.Duration
	if application.config.Auth != nil {
		ttl = application.config.Auth.TokenTTL
	}
	auth := server.NewJWTAuth(secret, ttl)
	if auth == nil {
		logger.Warn("custom vibes are disabled", zap.String("reason", "auth.jwt-secret is not set"))
	}

	srv, err := server.New(application.config.Server, application.svc, auth, logger)
	if err != nil {
		logger.Fatal("building the server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}
