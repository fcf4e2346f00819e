package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/fit-check/internal/closet"
	"github.com/spigell/fit-check/internal/fitcheck"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Rank the closet for a vibe and propose outfits",
	Run: func(cmd *cobra.Command, _ []string) {
		suggest(cmd)
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	suggestCmd.Flags().StringP("style", "s", "", "vibe id (asked interactively when empty)")
	suggestCmd.Flags().StringP("user", "u", "", "user id owning a custom vibe")
	suggestCmd.Flags().StringP("items", "i", "", "rank items from this JSON file instead of the stored closet")
	suggestCmd.Flags().Bool("skip-tops", false, "do not suggest tops")
	suggestCmd.Flags().Bool("skip-bottoms", false, "do not suggest bottoms")
}

func suggest(cmd *cobra.Command) {
	logger := newLogger()
	ctx := context.Background()

	application, err := setup(ctx, logger)
	if err != nil {
		logger.Fatal("starting the application", zap.Error(err))
	}
	defer application.Close()

	styleFlag, _ := cmd.Flags().GetString("style")
	userID, _ := cmd.Flags().GetString("user")
	itemsFile, _ := cmd.Flags().GetString("items")
	skipTops, _ := cmd.Flags().GetBool("skip-tops")
	skipBottoms, _ := cmd.Flags().GetBool("skip-bottoms")

	styleID, err := pickStyle(application.catalog, styleFlag)
	if err != nil {
		logger.Fatal("choosing a vibe", zap.Error(err))
	}

	needs := closet.Needs{Tops: !skipTops, Bottoms: !skipBottoms}

	var result *fitcheck.Suggestions
	if itemsFile != "" {
		items, err := readItems(itemsFile)
		if err != nil {
			logger.Fatal("reading items", zap.String("path", itemsFile), zap.Error(err))
		}
		result, err = application.svc.SuggestFromItems(ctx, userID, styleID, items, needs)
		if err != nil {
			logger.Fatal("building suggestions", zap.Error(err))
		}
	} else {
		result, err = application.svc.SuggestFromStore(ctx, userID, styleID, needs)
		if err != nil {
			logger.Fatal("building suggestions", zap.Error(err))
		}
	}

	logger.Info("suggestions",
		zap.String("style", result.StyleName),
		zap.Int("picks", len(result.Picks)),
		zap.Int("outfits", len(result.Outfits)),
	)
	printJSON(result)
}

// readItems loads a JSON array of closet items. Item ids and slots are
// normalized by the store on import, so they may be missing here.
func readItems(path string) ([]closet.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var items []closet.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range items {
		items[i].SourceSlot = closet.SlotFromSource(string(items[i].SourceSlot))
	}
	return items, nil
}
