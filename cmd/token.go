package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/fit-check/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a bearer token for the custom vibe endpoints",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		token(args[0])
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func token(userID string) {
	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	secret, err := jwtSecret(config.Auth)
	if err != nil {
		logger.Fatal("loading jwt secret", zap.Error(err))
	}

	var auth *server.JWTAuth
	if config.Auth != nil {
		auth = server.NewJWTAuth(secret, config.Auth.TokenTTL)
	}
	signed, err := auth.GenerateToken(userID)
	if err != nil {
		logger.Fatal("issuing token", zap.Error(err), zap.String("hint", "set auth.jwt-secret or JWT_SECRET"))
	}
	fmt.Println(signed)
}
