package fitcheck

import (
	"context"
	"encoding/base64"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/fit-check/internal/ai"
	"github.com/spigell/fit-check/internal/closet"
	"github.com/spigell/fit-check/internal/session"
	"github.com/spigell/fit-check/internal/store"
	"github.com/spigell/fit-check/internal/vibe"
)

type stubRater struct {
	rating *ai.Rating
	err    error
	last   ai.RatingRequest
}

func (s *stubRater) Rate(_ context.Context, req ai.RatingRequest) (*ai.Rating, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	r := *s.rating
	r.TargetStyle = req.Style.ID
	return &r, nil
}

type stubRubrics struct {
	rubric *closet.Rubric
	err    error
}

func (s *stubRubrics) GenerateRubric(context.Context, string) (*closet.Rubric, error) {
	return s.rubric, s.err
}

type fixture struct {
	svc      *Service
	store    *store.SQLiteStore
	sessions *session.Memory
	rater    *stubRater
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	catalog, err := vibe.Builtin()
	require.NoError(t, err)

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "fit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	sessions := session.NewMemory(0)
	t.Cleanup(func() { sessions.Close() }) //nolint:errcheck

	rater := &stubRater{rating: &ai.Rating{MatchScore: 72, TopMatch: true, BottomMatch: false, Grade: ai.Grade(72)}}

	svc, err := New(Deps{
		Catalog:  catalog,
		Store:    st,
		Sessions: sessions,
		Rater:    rater,
		Rubrics:  &stubRubrics{rubric: &closet.Rubric{SignatureItems: []string{"cardigan"}}},
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)

	return &fixture{svc: svc, store: st, sessions: sessions, rater: rater}
}

func (f *fixture) seedRapperCloset(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.PutItems(context.Background(), []closet.Item{
		{ID: "top-puffer", Category: "rapper", SourceSlot: closet.SlotTop,
			Attributes: closet.Attributes{Type: "puffer jacket", Color: "black", Fit: "oversized"}},
		{ID: "top-cardigan", Category: "rapper", SourceSlot: closet.SlotTop,
			Attributes: closet.Attributes{Type: "cardigan"}},
		{ID: "bottom-jeans", Category: "rapper", SourceSlot: closet.SlotBottom,
			Attributes: closet.Attributes{Type: "stacked jeans", Color: "denim"}},
		{ID: "bottom-khakis", Category: "rapper", SourceSlot: closet.SlotBottom,
			Attributes: closet.Attributes{Type: "khakis"}},
		{ID: "other-style", Category: "preppy", SourceSlot: closet.SlotTop,
			Attributes: closet.Attributes{Type: "puffer jacket"}},
	}))
}

func testDataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nxx"))
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestResolveRubric(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resolved, err := f.svc.ResolveRubric(ctx, "", "business-casual")
	require.NoError(t, err)
	assert.Equal(t, "business_casual", resolved.RubricKey)
	assert.NotEmpty(t, resolved.Style.Name)
	assert.False(t, resolved.Rubric.IsEmpty())

	_, err = f.svc.ResolveRubric(ctx, "", "disco")
	assert.ErrorIs(t, err, ErrRubricNotFound)

	_, err = f.svc.ResolveRubric(ctx, "", "custom-cozy")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.svc.ResolveRubric(ctx, "u1", "custom-cozy")
	assert.ErrorIs(t, err, ErrRubricNotFound)

	_, err = f.svc.CreateCustomVibe(ctx, "u1", CustomVibeInput{
		Name:        "Cozy",
		Description: "soft knits",
		Rubric:      &closet.Rubric{SignatureItems: []string{"cardigan"}},
	})
	require.NoError(t, err)

	resolved, err = f.svc.ResolveRubric(ctx, "u1", "custom-cozy")
	require.NoError(t, err)
	assert.Equal(t, "Cozy", resolved.Style.Name)
	assert.Equal(t, "soft knits", resolved.Style.Description)
	assert.Equal(t, []string{"cardigan"}, resolved.Rubric.SignatureItems)

	_, err = f.svc.ResolveRubric(ctx, "", " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSaveCaptureAndRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Rate(ctx, "s1", "", "rapper", "")
	assert.ErrorIs(t, err, ErrMissingCapture)

	_, err = f.svc.SaveCapture(ctx, "s1", "")
	assert.ErrorIs(t, err, ErrMissingCapture)

	img, err := f.svc.SaveCapture(ctx, "s1", testDataURL())
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)

	rating, err := f.svc.Rate(ctx, "s1", "", "rapper", "")
	require.NoError(t, err)
	assert.Equal(t, "rapper", rating.TargetStyle)
	assert.Equal(t, "Rapper Stuff", f.rater.last.Style.Name)
	require.NotNil(t, f.rater.last.Image)
	assert.Equal(t, "image/png", f.rater.last.Image.MIMEType)

	var stored ai.Rating
	require.NoError(t, session.GetJSON(ctx, f.sessions, "s1", session.KeyRating, &stored))
	assert.Equal(t, 72.0, stored.MatchScore)
	assert.True(t, stored.TopMatch)
}

func TestRateErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Rate(ctx, "s1", "", "nope", testDataURL())
	assert.ErrorIs(t, err, ErrRubricNotFound)

	_, err = f.svc.Rate(ctx, "s1", "", "rapper", "data:image/png;base64,@@@")
	assert.ErrorIs(t, err, ErrInvalidInput)

	f.rater.err = errors.New("model down")
	_, err = f.svc.Rate(ctx, "s1", "", "rapper", testDataURL())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model down")

	f.svc.rater = nil
	_, err = f.svc.Rate(ctx, "s1", "", "rapper", testDataURL())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNeedsFromRating(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want closet.Needs
	}{
		{"no rating", "", closet.Needs{Tops: true, Bottoms: true}},
		{"garbage", "{", closet.Needs{Tops: true, Bottoms: true}},
		{"top matched", `{"target_style":"rapper","top_match":true,"bottom_match":false}`, closet.Needs{Tops: false, Bottoms: true}},
		{"both matched", `{"target_style":"rapper","top_match":true,"bottom_match":true}`, closet.Needs{}},
		{"non boolean ignored", `{"top_match":"yes","bottom_match":true}`, closet.Needs{Tops: true, Bottoms: false}},
		{"non boolean keeps other slot", `{"target_style":"rapper","top_match":"yes","bottom_match":true}`, closet.Needs{Tops: true, Bottoms: false}},
		{"null top", `{"target_style":"rapper","top_match":null,"bottom_match":false}`, closet.Needs{Tops: true, Bottoms: true}},
		{"not an object", `[true, false]`, closet.Needs{Tops: true, Bottoms: true}},
		{"other style", `{"target_style":"preppy","top_match":true,"bottom_match":true}`, closet.Needs{Tops: true, Bottoms: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsFromRating([]byte(tt.raw), "rapper"))
		})
	}
}

func TestSuggestWithoutRating(t *testing.T) {
	f := newFixture(t)
	f.seedRapperCloset(t)

	got, err := f.svc.Suggest(context.Background(), "s1", "", "rapper")
	require.NoError(t, err)

	assert.True(t, got.NeedTops)
	assert.True(t, got.NeedBottoms)
	require.Len(t, got.Picks, 4)
	assert.Equal(t, "top-puffer", got.Picks[0].ID)
	assert.Equal(t, "top-cardigan", got.Picks[1].ID)
	assert.Equal(t, "bottom-jeans", got.Picks[2].ID)
	assert.Equal(t, "bottom-khakis", got.Picks[3].ID)
	for _, p := range got.Picks {
		assert.NotEqual(t, "other-style", p.ID)
	}

	require.Len(t, got.Outfits, 2)
	assert.Equal(t, "top-puffer", got.Outfits[0].Top.ID)
	assert.Equal(t, "bottom-jeans", got.Outfits[0].Bottom.ID)
	assert.GreaterOrEqual(t, got.Outfits[0].Score, got.Outfits[1].Score)
}

func TestSuggestUsesSessionRating(t *testing.T) {
	f := newFixture(t)
	f.seedRapperCloset(t)
	ctx := context.Background()

	require.NoError(t, f.sessions.Set(ctx, "s1", session.KeyRating,
		[]byte(`{"target_style":"rapper","top_match":true,"bottom_match":false}`)))

	got, err := f.svc.Suggest(ctx, "s1", "", "rapper")
	require.NoError(t, err)
	assert.False(t, got.NeedTops)
	assert.True(t, got.NeedBottoms)
	require.Len(t, got.Picks, 2)
	assert.Equal(t, closet.SlotBottom, got.Picks[0].Slot)
	assert.Empty(t, got.Outfits)

	require.NoError(t, f.sessions.Set(ctx, "s1", session.KeyRating,
		[]byte(`{"target_style":"rapper","top_match":true,"bottom_match":true}`)))
	got, err = f.svc.Suggest(ctx, "s1", "", "rapper")
	require.NoError(t, err)
	assert.Empty(t, got.Picks)
	assert.Empty(t, got.Outfits)
}

func TestSuggestFromStoreIgnoresSessionRating(t *testing.T) {
	f := newFixture(t)
	f.seedRapperCloset(t)

	got, err := f.svc.SuggestFromStore(context.Background(), "", "rapper", closet.Needs{Tops: true})
	require.NoError(t, err)
	assert.True(t, got.NeedTops)
	assert.False(t, got.NeedBottoms)
	require.Len(t, got.Picks, 2)
	assert.Equal(t, "top-puffer", got.Picks[0].ID)
	assert.Empty(t, got.Outfits)
}

func TestSuggestCustomVibeUsesWholeCloset(t *testing.T) {
	f := newFixture(t)
	f.seedRapperCloset(t)
	ctx := context.Background()

	_, err := f.svc.CreateCustomVibe(ctx, "u1", CustomVibeInput{
		Name:   "Puffer Life",
		Rubric: &closet.Rubric{SignatureItems: []string{"puffer jacket"}},
	})
	require.NoError(t, err)

	got, err := f.svc.Suggest(ctx, "", "u1", "custom-puffer-life")
	require.NoError(t, err)

	var tops int
	for _, p := range got.Picks {
		if p.Slot == closet.SlotTop {
			tops++
		}
	}
	assert.Equal(t, 3, tops, "custom vibes rank tops of every category")
}

func TestSuggestFromItems(t *testing.T) {
	f := newFixture(t)

	items := []closet.Item{
		{ID: "a", SourceSlot: closet.SlotTop, Attributes: closet.Attributes{Type: "puffer jacket"}},
		{ID: "b", SourceSlot: closet.SlotBottom, Attributes: closet.Attributes{Type: "track pants"}},
	}
	got, err := f.svc.SuggestFromItems(context.Background(), "", "rapper", items, closet.Needs{Tops: true, Bottoms: true})
	require.NoError(t, err)
	require.Len(t, got.Outfits, 1)
	assert.Equal(t, "a", got.Outfits[0].Top.ID)
	assert.Equal(t, "b", got.Outfits[0].Bottom.ID)
}

func TestCustomVibes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListCustomVibes(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.svc.CreateCustomVibe(ctx, "u1", CustomVibeInput{Name: "No Rubric"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.CreateCustomVibe(ctx, "u1", CustomVibeInput{Rubric: &closet.Rubric{}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.CreateCustomVibe(ctx, "u1", CustomVibeInput{ID: "preppy", Name: "x", Rubric: &closet.Rubric{}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	rubric, err := f.svc.GenerateRubric(ctx, "cozy librarian")
	require.NoError(t, err)

	created, err := f.svc.CreateCustomVibe(ctx, "u1", CustomVibeInput{Name: "Cozy  Librarian", Rubric: rubric})
	require.NoError(t, err)
	assert.Equal(t, "custom-cozy-librarian", created.ID)

	list, err := f.svc.ListCustomVibes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, err := f.svc.GetCustomVibe(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cardigan"}, got.Rubric.SignatureItems)

	_, err = f.svc.GetCustomVibe(ctx, "u2", created.ID)
	assert.ErrorIs(t, err, ErrVibeNotFound)

	require.NoError(t, f.svc.DeleteCustomVibe(ctx, "u1", created.ID))
	_, err = f.svc.GetCustomVibe(ctx, "u1", created.ID)
	assert.ErrorIs(t, err, ErrVibeNotFound)
	assert.ErrorIs(t, f.svc.DeleteCustomVibe(ctx, "u1", ""), ErrInvalidInput)
}

func TestGenerateRubricErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GenerateRubric(ctx, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	f.svc.rubrics = &stubRubrics{err: errors.New("quota")}
	_, err = f.svc.GenerateRubric(ctx, "x")
	assert.Error(t, err)

	f.svc.rubrics = nil
	_, err = f.svc.GenerateRubric(ctx, "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
