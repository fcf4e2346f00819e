package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/fit-check/internal/filtering"
)

var importCmd = &cobra.Command{
	Use:   "import <items.json>",
	Short: "Import tagged closet items into the store",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		importItems(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringP("exclude-file", "e", "", "file with item ids to skip. Default is unset.")
	importCmd.Flags().Bool("any-category", false, "keep items tagged with a category that is not a known vibe")
	importCmd.Flags().Bool("keep-untagged", false, "keep items without attributes")
	importCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation")

	viper.BindPFlag("exclude-file", importCmd.Flags().Lookup("exclude-file"))
}

func importItems(cmd *cobra.Command, path string) {
	logger := newLogger()
	ctx := context.Background()

	application, err := setup(ctx, logger)
	if err != nil {
		logger.Fatal("starting the application", zap.Error(err))
	}
	defer application.Close()

	items, err := readItems(path)
	if err != nil {
		logger.Fatal("reading items", zap.String("path", path), zap.Error(err))
	}
	logger.Info("items loaded", zap.String("path", path), zap.Int("count", len(items)))

	styleIDs := make([]string, 0)
	for _, s := range application.catalog.Styles() {
		styleIDs = append(styleIDs, s.ID)
	}

	steps := []filtering.Filter{
		filtering.NewDuplicates(),
		filtering.NewExcludeFile(application.config.ExcludeFile),
		filtering.NewCategories(styleIDs),
		filtering.NewUntagged(),
	}
	if anyCategory, _ := cmd.Flags().GetBool("any-category"); anyCategory {
		filtering.DisableByName(steps, "categories", "any-category flag is set")
	}
	if keepUntagged, _ := cmd.Flags().GetBool("keep-untagged"); keepUntagged {
		filtering.DisableByName(steps, "untagged", "keep-untagged flag is set")
	}

	for _, status := range filtering.Describe(steps) {
		logger.Debug("filter configured",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	items, err = filtering.Run(ctx, steps, items, logger)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}
	if len(items) == 0 {
		logger.Info("exiting", zap.String("reason", "no items left after filters"))
		return
	}

	if approve, _ := cmd.Flags().GetBool("auto-approve"); !approve {
		ok, err := confirm(fmt.Sprintf("Import %d items?", len(items)))
		if err != nil || !ok {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	if err := application.store.PutItems(ctx, items); err != nil {
		logger.Fatal("saving items", zap.Error(err))
	}
	logger.Info("successfully imported items", zap.Int("count", len(items)))
}
