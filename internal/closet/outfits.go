package closet

import (
	"fmt"
	"math"
	"slices"
)

// Pairing bounds and blend weights.
const (
	OutfitPoolSize = 8
	MaxOutfits     = 10

	TopWeight    = 0.55
	BottomWeight = 0.45
)

// Top picks bounds used by Picks.
const (
	PicksPerSlot = 6
	MaxPicks     = 8
)

// BuildOutfits pairs the best tops and bottoms round-robin. Both inputs must
// already be ranked. The result is ordered by blended score, highest first.
func BuildOutfits(tops, bottoms []RankedItem) []Outfit {
	topPool := head(tops, OutfitPoolSize)
	bottomPool := head(bottoms, OutfitPoolSize)

	if len(topPool) == 0 && len(bottomPool) == 0 {
		return []Outfit{}
	}

	count := min(max(len(topPool), len(bottomPool)), MaxOutfits)
	outfits := make([]Outfit, 0, count)

	for i := range count {
		top := pick(topPool, i)
		bottom := pick(bottomPool, i)

		topScore, bottomScore := 0, 0
		if top != nil {
			topScore = top.Score
		}
		if bottom != nil {
			bottomScore = bottom.Score
		}

		outfits = append(outfits, Outfit{
			Title:  fmt.Sprintf("Outfit %d", i+1),
			Top:    top,
			Bottom: bottom,
			Score:  BlendScore(topScore, bottomScore),
		})
	}

	slices.SortStableFunc(outfits, func(a, b Outfit) int {
		return b.Score - a.Score
	})
	return outfits
}

// BlendScore weights the two sides of an outfit and rounds half up, so 15.5
// becomes 16 and -2.5 becomes -2.
func BlendScore(top, bottom int) int {
	return int(math.Floor(float64(top)*TopWeight + float64(bottom)*BottomWeight + 0.5))
}

// Needs says which slots the user still has to fix.
type Needs struct {
	Tops    bool
	Bottoms bool
}

// Picks returns single-item suggestions for the needed slots.
func Picks(tops, bottoms []RankedItem, needs Needs) []RankedItem {
	list := make([]RankedItem, 0, MaxPicks)
	if needs.Tops {
		list = append(list, head(tops, PicksPerSlot)...)
	}
	if needs.Bottoms {
		list = append(list, head(bottoms, PicksPerSlot)...)
	}
	return head(list, MaxPicks)
}

func pick(pool []RankedItem, i int) *RankedItem {
	if len(pool) == 0 {
		return nil
	}
	item := pool[i%max(len(pool), 1)]
	return &item
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
