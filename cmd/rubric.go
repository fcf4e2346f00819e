package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/fit-check/internal/fitcheck"
)

var rubricCmd = &cobra.Command{
	Use:   "rubric <description>",
	Short: "Generate a rubric for a free text vibe description",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rubric(cmd, strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(rubricCmd)

	rubricCmd.Flags().String("save-as", "", "save the rubric as a custom vibe with this name")
	rubricCmd.Flags().StringP("user", "u", "", "owner of the saved custom vibe")
}

func rubric(cmd *cobra.Command, description string) {
	logger := newLogger()
	ctx := context.Background()

	application, err := setup(ctx, logger)
	if err != nil {
		logger.Fatal("starting the application", zap.Error(err))
	}
	defer application.Close()

	name, _ := cmd.Flags().GetString("save-as")
	userID, _ := cmd.Flags().GetString("user")

	generated, err := application.svc.GenerateRubric(ctx, description)
	if err != nil {
		logger.Fatal("generating the rubric", zap.Error(err))
	}

	out, err := yaml.Marshal(generated)
	if err != nil {
		logger.Fatal("encoding the rubric", zap.Error(err))
	}
	fmt.Print(string(out))

	if name == "" {
		return
	}

	saved, err := application.svc.CreateCustomVibe(ctx, userID, fitcheck.CustomVibeInput{
		Name:        name,
		Description: description,
		Rubric:      generated,
	})
	if err != nil {
		logger.Fatal("saving the custom vibe", zap.Error(err))
	}
	logger.Info("custom vibe saved", zap.String("id", saved.ID), zap.String("user", saved.UserID))
}
