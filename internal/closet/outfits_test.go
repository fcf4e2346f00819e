package closet

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedPool(prefix string, slot Slot, scores ...int) []RankedItem {
	out := make([]RankedItem, 0, len(scores))
	for i, s := range scores {
		out = append(out, RankedItem{
			Item:  Item{ID: fmt.Sprintf("%s%d", prefix, i), SourceSlot: slot},
			Slot:  slot,
			Score: s,
		})
	}
	return out
}

func TestBuildOutfitsEmpty(t *testing.T) {
	assert.Empty(t, BuildOutfits(nil, nil))
	assert.Empty(t, BuildOutfits([]RankedItem{}, []RankedItem{}))
}

func TestBuildOutfitsRoundRobin(t *testing.T) {
	// Equal scores keep generation order so indexes are easy to check.
	tops := rankedPool("t", SlotTop, 0, 0, 0)
	bottoms := rankedPool("b", SlotBottom, 0, 0, 0, 0, 0, 0, 0, 0)

	outfits := BuildOutfits(tops, bottoms)
	require.Len(t, outfits, 8)

	sixth := outfits[5]
	assert.Equal(t, "Outfit 6", sixth.Title)
	require.NotNil(t, sixth.Top)
	require.NotNil(t, sixth.Bottom)
	assert.Equal(t, "t2", sixth.Top.ID)
	assert.Equal(t, "b5", sixth.Bottom.ID)
}

func TestBuildOutfitsPoolTruncationAndCap(t *testing.T) {
	tops := rankedPool("t", SlotTop, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9)
	bottoms := rankedPool("b", SlotBottom, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1)

	outfits := BuildOutfits(tops, bottoms)
	require.Len(t, outfits, OutfitPoolSize)

	for _, o := range outfits {
		var idx int
		_, err := fmt.Sscanf(o.Top.ID, "t%d", &idx)
		require.NoError(t, err)
		assert.Less(t, idx, OutfitPoolSize)
	}
}

func TestBuildOutfitsMissingSide(t *testing.T) {
	bottoms := rankedPool("b", SlotBottom, 10, 4)

	outfits := BuildOutfits(nil, bottoms)
	require.Len(t, outfits, 2)
	for _, o := range outfits {
		assert.Nil(t, o.Top)
		assert.NotNil(t, o.Bottom)
	}
	assert.Equal(t, BlendScore(0, 10), outfits[0].Score)
	assert.Equal(t, "Outfit 1", outfits[0].Title)

	outfits = BuildOutfits(rankedPool("t", SlotTop, 5), nil)
	require.Len(t, outfits, 1)
	assert.Nil(t, outfits[0].Bottom)
	assert.Equal(t, 3, outfits[0].Score)
}

func TestBuildOutfitsSortedByBlendedScore(t *testing.T) {
	tops := rankedPool("t", SlotTop, 20, 2)
	bottoms := rankedPool("b", SlotBottom, 10, 30, -4)

	outfits := BuildOutfits(tops, bottoms)
	require.Len(t, outfits, 3)

	// Outfit 1: 20/10 -> 16, Outfit 2: 2/30 -> 15, Outfit 3: 20/-4 -> 9
	assert.Equal(t, []string{"Outfit 1", "Outfit 2", "Outfit 3"},
		[]string{outfits[0].Title, outfits[1].Title, outfits[2].Title})
	assert.Equal(t, []int{16, 15, 9}, []int{outfits[0].Score, outfits[1].Score, outfits[2].Score})
}

func TestBlendScoreRoundsHalfUp(t *testing.T) {
	tests := []struct {
		top, bottom int
		expect      int
	}{
		{top: 20, bottom: 10, expect: 16},
		{top: 10, bottom: 10, expect: 10},
		{top: 1, bottom: 0, expect: 1},
		{top: 0, bottom: 1, expect: 0},
		{top: -5, bottom: 0, expect: -3},
		{top: 0, bottom: 0, expect: 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d", tt.top, tt.bottom), func(t *testing.T) {
			assert.Equal(t, tt.expect, BlendScore(tt.top, tt.bottom))
		})
	}
}

func TestPicks(t *testing.T) {
	tops := rankedPool("t", SlotTop, 9, 8, 7, 6, 5, 4, 3)
	bottoms := rankedPool("b", SlotBottom, 9, 8, 7)

	all := Picks(tops, bottoms, Needs{Tops: true, Bottoms: true})
	require.Len(t, all, MaxPicks)
	assert.Equal(t, "t0", all[0].ID)
	assert.Equal(t, "t5", all[5].ID)
	assert.Equal(t, "b0", all[6].ID)
	assert.Equal(t, "b1", all[7].ID)

	onlyBottoms := Picks(tops, bottoms, Needs{Bottoms: true})
	require.Len(t, onlyBottoms, 3)
	assert.Equal(t, SlotBottom, onlyBottoms[0].Slot)

	assert.Empty(t, Picks(tops, bottoms, Needs{}))
}
