package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rateCmd = &cobra.Command{
	Use:   "rate <image>",
	Short: "Rate an outfit photo against a vibe",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rate(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(rateCmd)

	rateCmd.Flags().StringP("style", "s", "", "vibe id to rate against (asked interactively when empty)")
	rateCmd.Flags().StringP("user", "u", "", "user id owning a custom vibe")
	rateCmd.Flags().Bool("suggest", false, "print closet suggestions for the slots that missed")
}

func rate(cmd *cobra.Command, path string) {
	logger := newLogger()
	ctx := context.Background()

	application, err := setup(ctx, logger)
	if err != nil {
		logger.Fatal("starting the application", zap.Error(err))
	}
	defer application.Close()

	styleFlag, _ := cmd.Flags().GetString("style")
	userID, _ := cmd.Flags().GetString("user")
	withSuggestions, _ := cmd.Flags().GetBool("suggest")

	styleID, err := pickStyle(application.catalog, styleFlag)
	if err != nil {
		logger.Fatal("choosing a vibe", zap.Error(err))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("reading the photo", zap.String("path", path), zap.Error(err))
	}

	sessionID := "cli-" + uuid.NewString()
	rating, err := application.svc.Rate(ctx, sessionID, userID, styleID, base64.StdEncoding.EncodeToString(data))
	if err != nil {
		logger.Fatal("rating the outfit", zap.Error(err))
	}

	printJSON(rating)

	if !withSuggestions {
		return
	}

	suggestions, err := application.svc.Suggest(ctx, sessionID, userID, styleID)
	if err != nil {
		logger.Fatal("building suggestions", zap.Error(err))
	}
	printJSON(suggestions)
}

func printJSON(v any) {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encoding output: %v\n", err)
		return
	}
	fmt.Println(string(pretty))
}
